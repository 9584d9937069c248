package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points ENV_PATH at an empty directory and blanks keys that may be
// set in the developer's shell. Viper treats empty variables as unset.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_PATH", filepath.Join(dir, ".env"))
	for _, k := range []string{
		"DISCORD_TOKEN", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"TRANSCRIBE_BACKEND", "SUMMARY_MODE", "SUMMARY_BACKEND",
		"STORAGE_BACKEND", "SUPABASE_URL", "SUPABASE_KEY", "STORAGE_BUCKET",
		"LOCAL_DIR", "SEGMENT_INTERVAL", "UPLOAD_CONCURRENCY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefaults(t *testing.T) {
	isolate(t)
	v, err := newViper()
	require.NoError(t, err)
	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.TranscribeBackend)
	assert.Equal(t, "en", cfg.TranscribeLanguage)
	assert.Equal(t, "text", cfg.SummaryMode)
	assert.Equal(t, "supabase", cfg.StorageBackend)
	assert.Equal(t, "meeting", cfg.StorageBucket)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 4, cfg.UploadConcurrency)
	assert.Zero(t, cfg.SegmentInterval)
	assert.Empty(t, cfg.File)
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SUPABASE_URL", "https://xyz.supabase.co")
	t.Setenv("SUPABASE_KEY", "service")
	t.Setenv("SEGMENT_INTERVAL", "5m")
	t.Setenv("UPLOAD_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.SegmentInterval)
	assert.Equal(t, 8, cfg.UploadConcurrency)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	env := "STORAGE_BACKEND=local\nLOCAL_DIR=/var/lib/meetrec\nTRANSCRIBE_BACKEND=whispercpp\n" +
		"WHISPER_MODEL_PATH=/models/base.bin\nSUMMARY_MODE=none\nLOG_FORMAT=json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, "/var/lib/meetrec", cfg.LocalDir)
	assert.Equal(t, "whispercpp", cfg.TranscribeBackend)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, filepath.Join(dir, ".env"), cfg.File)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("LOG_LEVEL", "warn")

	v, err := newViper()
	require.NoError(t, err)
	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func validConfig() *Config {
	return &Config{
		OpenAIAPIKey:      "sk",
		TranscribeBackend: TranscribeOpenAI,
		SummaryMode:       "text",
		SummaryBackend:    SummaryOpenAI,
		StorageBackend:    StorageS3,
		StorageBucket:     "meeting",
		FFmpegPath:        "ffmpeg",
		UploadConcurrency: 4,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad summary mode", func(c *Config) { c.SummaryMode = "short" }, false},
		{"bad storage", func(c *Config) { c.StorageBackend = "gcs" }, false},
		{"supabase needs url", func(c *Config) { c.StorageBackend = StorageSupabase; c.SupabaseKey = "k" }, false},
		{"local needs dir", func(c *Config) { c.StorageBackend = StorageLocal }, false},
		{"local without bucket", func(c *Config) {
			c.StorageBackend = StorageLocal
			c.LocalDir = "/tmp/x"
			c.StorageBucket = ""
		}, true},
		{"s3 needs bucket", func(c *Config) { c.StorageBucket = "" }, false},
		{"s3 endpoint must be url", func(c *Config) { c.S3Endpoint = "not a url" }, false},
		{"s3 key without secret", func(c *Config) { c.S3AccessKeyID = "AKIA" }, false},
		{"negative interval", func(c *Config) { c.SegmentInterval = -time.Second }, false},
		{"zero concurrency", func(c *Config) { c.UploadConcurrency = 0 }, false},
		{"whisper needs model", func(c *Config) { c.TranscribeBackend = TranscribeWhisper }, false},
		{"openai needs key", func(c *Config) { c.OpenAIAPIKey = "" }, false},
		{"anthropic needs key", func(c *Config) { c.SummaryBackend = SummaryAnthropic }, false},
		{"anthropic with key", func(c *Config) {
			c.SummaryBackend = SummaryAnthropic
			c.AnthropicAPIKey = "ak"
		}, true},
		{"no summaries skip keys", func(c *Config) {
			c.TranscribeBackend = TranscribeWhisper
			c.WhisperModelPath = "/m.bin"
			c.SummaryMode = "none"
			c.OpenAIAPIKey = ""
		}, true},
		{"structured gemini needs key", func(c *Config) {
			c.SummaryMode = "structured"
			c.SummaryBackend = SummaryGemini
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStructuredBackend(t *testing.T) {
	cfg := validConfig()
	for backend, want := range map[string]string{
		SummaryOpenAI:    SummaryOpenAI,
		SummaryAnthropic: SummaryOpenAI,
		SummaryGemini:    SummaryGemini,
	} {
		cfg.SummaryBackend = backend
		assert.Equal(t, want, cfg.StructuredBackend(), backend)
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.DiscordToken = "abcdefghijklmnop"
	cfg.SupabaseKey = "short"

	r := cfg.Redacted()
	assert.Equal(t, "abcd****", r.DiscordToken)
	assert.Equal(t, "****", r.SupabaseKey)
	assert.Equal(t, "abcdefghijklmnop", cfg.DiscordToken)
}

func TestRequireDiscord(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.RequireDiscord())
	cfg.DiscordToken = "token"
	assert.NoError(t, cfg.RequireDiscord())
}
