package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/haivivi/meetrec/cmd/meetrec/internal/config"
	"github.com/haivivi/meetrec/pkg/artifact"
	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/index"
	"github.com/haivivi/meetrec/pkg/meeting"
	"github.com/haivivi/meetrec/pkg/storage"
	"github.com/haivivi/meetrec/pkg/summarize"
	"github.com/haivivi/meetrec/pkg/transcribe"
)

var errNoWhisperBuild = errors.New("transcribe backend whispercpp needs a binary built with -tags whispercpp")

// components are the processing collaborators of a Recorder, built from
// the configuration.
type components struct {
	mixer       *transcode.FFmpeg
	store       *artifact.Store
	index       index.Index
	transcriber *transcribe.Transcriber
	mode        summarize.Mode
	summarizer  meeting.TextSummarizer
	extractor   meeting.TeamExtractor

	closers []func() error
}

func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

func newMixer(cfg *config.Config, logger *slog.Logger) *transcode.FFmpeg {
	return &transcode.FFmpeg{Bin: cfg.FFmpegPath, Logger: logger}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s, err := storage.DialS3(ctx, storage.S3Config{
			Bucket:          cfg.StorageBucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageLocal:
		s, err := storage.NewLocal(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageSupabase:
		s, err := storage.NewSupabase(storage.SupabaseConfig{
			URL:    cfg.SupabaseURL,
			Key:    cfg.SupabaseKey,
			Bucket: cfg.StorageBucket,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// openIndex opens the on-disk index under INDEX_DIR, or an in-memory one
// when it is empty.
func openIndex(cfg *config.Config, logger *slog.Logger) (index.Index, error) {
	if cfg.IndexDir == "" {
		return index.NewMemory(), nil
	}
	idx, err := index.OpenBadger(index.BadgerOptions{Dir: cfg.IndexDir, Logger: logger})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	return &client
}

func newTranscriber(cfg *config.Config, mixer transcode.Mixer, logger *slog.Logger) (*transcribe.Transcriber, func() error, error) {
	var (
		engine  transcribe.Engine
		closeFn = func() error { return nil }
	)
	switch cfg.TranscribeBackend {
	case config.TranscribeWhisper:
		e, err := newWhisperEngine(cfg.WhisperModelPath, mixer)
		if err != nil {
			return nil, nil, err
		}
		engine, closeFn = e, e.Close
	default:
		engine = &transcribe.OpenAI{
			Client: newOpenAIClient(cfg),
			Model:  openai.AudioModel(cfg.TranscribeModel),
		}
	}
	t := transcribe.New(engine,
		transcribe.WithLanguage(cfg.TranscribeLanguage),
		transcribe.WithLogger(logger),
	)
	return t, closeFn, nil
}

func newCompleter(ctx context.Context, cfg *config.Config, backend, model string) (summarize.Completer, error) {
	switch backend {
	case config.SummaryAnthropic:
		client := anthropic.NewClient(aoption.WithAPIKey(cfg.AnthropicAPIKey))
		return &summarize.Anthropic{Client: &client, Model: model}, nil
	case config.SummaryGemini:
		return newGemini(ctx, cfg, model)
	default:
		return &summarize.OpenAI{Client: newOpenAIClient(cfg), Model: model}, nil
	}
}

func newExtractor(ctx context.Context, cfg *config.Config, model string) (summarize.Extractor, error) {
	if cfg.StructuredBackend() == config.SummaryGemini {
		return newGemini(ctx, cfg, model)
	}
	return &summarize.OpenAI{Client: newOpenAIClient(cfg), Model: model}, nil
}

func newGemini(ctx context.Context, cfg *config.Config, model string) (*summarize.Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &summarize.Gemini{Client: client, Model: model}, nil
}

// newComponents builds everything a Recorder needs except the gateway.
func newComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := summarize.ParseMode(cfg.SummaryMode)
	if err != nil {
		return nil, err
	}
	c := &components{mode: mode, mixer: newMixer(cfg, logger)}

	blobs, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.store = artifact.New(blobs, logger)

	if c.index, err = openIndex(cfg, logger); err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.index.Close)

	t, closeFn, err := newTranscriber(cfg, c.mixer, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.transcriber = t
	c.closers = append(c.closers, closeFn)

	if mode.WantsText() {
		completer, err := newCompleter(ctx, cfg, cfg.SummaryBackend, cfg.SummaryModel)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.summarizer = summarize.New(completer)
	}
	if mode.WantsStructured() {
		extractor, err := newExtractor(ctx, cfg, cfg.StructuredModel)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.extractor = summarize.NewStructured(extractor)
	}
	return c, nil
}

func (c *components) recorderConfig(cfg *config.Config, gw meeting.Gateway, logger *slog.Logger) meeting.Config {
	return meeting.Config{
		Gateway:           gw,
		Mixer:             c.mixer,
		Transcriber:       c.transcriber,
		Store:             c.store,
		SummaryMode:       c.mode,
		Summarizer:        c.summarizer,
		Extractor:         c.extractor,
		Index:             c.index,
		SegmentInterval:   cfg.SegmentInterval,
		Bitrate:           cfg.AudioBitrate,
		UploadConcurrency: cfg.UploadConcurrency,
		Logger:            logger,
	}
}
