// Package transcribe turns encoded audio into text through a speech
// recognition engine.
//
// A Transcriber materializes the buffer as a temporary file, invokes its
// Engine exactly once and joins the returned segments with newlines. There is
// no retry; engine failures are returned as *meeterr.ExternalToolError.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/meeterr"
)

// DefaultBeamSize is the beam width requested from the engine.
const DefaultBeamSize = 5

// Segment is one piece of recognized text in emission order.
type Segment struct {
	Text string
}

// Options are passed to an Engine on every call.
type Options struct {
	BeamSize int
	// Language is an ISO-639-1 hint. Empty lets the engine detect it.
	Language string
}

// Engine recognizes speech in the audio file at path.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error)
}

// Transcriber runs an Engine on in-memory buffers.
type Transcriber struct {
	engine  Engine
	opts    Options
	tempDir string
	logger  *slog.Logger
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.opts.Language = lang }
}

// WithBeamSize overrides DefaultBeamSize.
func WithBeamSize(n int) Option {
	return func(t *Transcriber) { t.opts.BeamSize = n }
}

// WithTempDir sets the directory used for intermediate files.
func WithTempDir(dir string) Option {
	return func(t *Transcriber) { t.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transcriber) { t.logger = l }
}

// New returns a Transcriber backed by engine.
func New(engine Engine, opts ...Option) *Transcriber {
	t := &Transcriber{
		engine: engine,
		opts:   Options{BeamSize: DefaultBeamSize},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Transcribe returns the text spoken in data.
func (t *Transcriber) Transcribe(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("transcribe: empty audio")
	}
	tmp, err := os.CreateTemp(t.tempDir, "meetrec-asr-*"+transcode.Sniff(data).Ext())
	if err != nil {
		return "", fmt.Errorf("transcribe: create temp file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("transcribe: remove temp file", slog.String("path", path), slog.Any("error", err))
		}
	}()
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", fmt.Errorf("transcribe: write temp file: %w", werr)
	}

	segments, err := t.engine.Transcribe(ctx, path, t.opts)
	if err != nil {
		return "", meeterr.Tool(t.engine.Name(), "transcribe", err)
	}
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	t.logger.Debug("transcribe: done",
		slog.String("engine", t.engine.Name()),
		slog.Int("segments", len(segments)),
	)
	return strings.Join(texts, "\n"), nil
}
