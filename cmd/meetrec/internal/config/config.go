// Package config loads the meetrec configuration from the environment and
// an optional .env file.
//
// Values are resolved in this order: process environment, the file named by
// ENV_PATH (or ./.env), then the defaults below.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Backend names.
const (
	TranscribeOpenAI  = "openai"
	TranscribeWhisper = "whispercpp"

	SummaryOpenAI    = "openai"
	SummaryAnthropic = "anthropic"
	SummaryGemini    = "gemini"

	StorageSupabase = "supabase"
	StorageS3       = "s3"
	StorageLocal    = "local"
)

// Config is the process configuration.
type Config struct {
	DiscordToken   string `mapstructure:"discord_token"`
	DiscordGuildID string `mapstructure:"discord_guild_id"`

	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`

	TranscribeBackend  string `mapstructure:"transcribe_backend" validate:"oneof=openai whispercpp"`
	TranscribeModel    string `mapstructure:"transcribe_model"`
	TranscribeLanguage string `mapstructure:"transcribe_language"`
	WhisperModelPath   string `mapstructure:"whisper_model_path" validate:"required_if=TranscribeBackend whispercpp"`

	SummaryMode     string `mapstructure:"summary_mode" validate:"oneof=none text structured both"`
	SummaryBackend  string `mapstructure:"summary_backend" validate:"oneof=openai anthropic gemini"`
	SummaryModel    string `mapstructure:"summary_model"`
	StructuredModel string `mapstructure:"structured_model"`

	StorageBackend    string `mapstructure:"storage_backend" validate:"oneof=supabase s3 local"`
	SupabaseURL       string `mapstructure:"supabase_url" validate:"required_if=StorageBackend supabase"`
	SupabaseKey       string `mapstructure:"supabase_key" validate:"required_if=StorageBackend supabase"`
	StorageBucket     string `mapstructure:"storage_bucket" validate:"required_unless=StorageBackend local"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3Prefix          string `mapstructure:"s3_prefix"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key" validate:"required_with=S3AccessKeyID"`
	LocalDir          string `mapstructure:"local_dir" validate:"required_if=StorageBackend local"`

	SegmentInterval   time.Duration `mapstructure:"segment_interval" validate:"gte=0"`
	FFmpegPath        string        `mapstructure:"ffmpeg_path" validate:"required"`
	AudioBitrate      string        `mapstructure:"audio_bitrate"`
	UploadConcurrency int           `mapstructure:"upload_concurrency" validate:"min=1,max=64"`

	IndexDir string `mapstructure:"index_dir"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
	LogFile   string `mapstructure:"log_file"`

	// File is the .env file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the configuration without validating it.
func Read() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	path := os.Getenv("ENV_PATH")
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefault(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return v, nil
}

// setDefault registers every key so that Unmarshal picks up environment
// values for keys absent from the file.
func setDefault(v *viper.Viper) {
	v.SetDefault("DISCORD_TOKEN", "")
	v.SetDefault("DISCORD_GUILD_ID", "")

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("GEMINI_API_KEY", "")

	v.SetDefault("TRANSCRIBE_BACKEND", TranscribeOpenAI)
	v.SetDefault("TRANSCRIBE_MODEL", "whisper-1")
	v.SetDefault("TRANSCRIBE_LANGUAGE", "en")
	v.SetDefault("WHISPER_MODEL_PATH", "")

	v.SetDefault("SUMMARY_MODE", "text")
	v.SetDefault("SUMMARY_BACKEND", SummaryOpenAI)
	v.SetDefault("SUMMARY_MODEL", "")
	v.SetDefault("STRUCTURED_MODEL", "")

	v.SetDefault("STORAGE_BACKEND", StorageSupabase)
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "meeting")
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("LOCAL_DIR", "")

	v.SetDefault("SEGMENT_INTERVAL", "0s")
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("AUDIO_BITRATE", "")
	v.SetDefault("UPLOAD_CONCURRENCY", 4)

	v.SetDefault("INDEX_DIR", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_FILE", "")
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.File); err != nil {
		cfg.File = ""
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that every selected backend has its
// credentials.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var errs []error
	need := func(key, value, what string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("config: %s is required for %s", key, what))
		}
	}
	if c.TranscribeBackend == TranscribeOpenAI {
		need("OPENAI_API_KEY", c.OpenAIAPIKey, "openai transcription")
	}
	if c.wantsText() {
		switch c.SummaryBackend {
		case SummaryOpenAI:
			need("OPENAI_API_KEY", c.OpenAIAPIKey, "openai summaries")
		case SummaryAnthropic:
			need("ANTHROPIC_API_KEY", c.AnthropicAPIKey, "anthropic summaries")
		case SummaryGemini:
			need("GEMINI_API_KEY", c.GeminiAPIKey, "gemini summaries")
		}
	}
	if c.wantsStructured() {
		switch c.StructuredBackend() {
		case SummaryOpenAI:
			need("OPENAI_API_KEY", c.OpenAIAPIKey, "structured summaries")
		case SummaryGemini:
			need("GEMINI_API_KEY", c.GeminiAPIKey, "structured summaries")
		}
	}
	return errors.Join(errs...)
}

// StructuredBackend is the backend used for structured summaries. Anthropic
// has no JSON schema mode here, so it falls back to OpenAI.
func (c *Config) StructuredBackend() string {
	if c.SummaryBackend == SummaryGemini {
		return SummaryGemini
	}
	return SummaryOpenAI
}

func (c *Config) wantsText() bool {
	return c.SummaryMode == "text" || c.SummaryMode == "both"
}

func (c *Config) wantsStructured() bool {
	return c.SummaryMode == "structured" || c.SummaryMode == "both"
}

// RequireDiscord reports an error when the bot token is missing.
func (c *Config) RequireDiscord() error {
	if c.DiscordToken == "" {
		return errors.New("config: DISCORD_TOKEN is required")
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() Config {
	r := *c
	for _, s := range []*string{
		&r.DiscordToken, &r.OpenAIAPIKey, &r.AnthropicAPIKey,
		&r.GeminiAPIKey, &r.SupabaseKey, &r.S3SecretAccessKey,
	} {
		*s = mask(*s)
	}
	return r
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}
