//go:build whispercpp

package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/haivivi/meetrec/pkg/audio/transcode"
)

// WhisperCpp is an Engine running a local whisper.cpp model. Audio is
// decoded to 16 kHz mono PCM with the given Mixer before inference.
type WhisperCpp struct {
	model   whisper.Model
	decoder transcode.Mixer

	// whisper.cpp contexts are not safe for concurrent Process calls.
	mu sync.Mutex
}

// NewWhisperCpp loads the ggml model at modelPath.
func NewWhisperCpp(modelPath string, decoder transcode.Mixer) (*WhisperCpp, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model: %w", err)
	}
	return &WhisperCpp{model: model, decoder: decoder}, nil
}

func (e *WhisperCpp) Name() string { return "whisper.cpp" }

// Close releases the model.
func (e *WhisperCpp) Close() error { return e.model.Close() }

func (e *WhisperCpp) Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := e.decoder.Convert(ctx, data, transcode.ConvertOptions{
		Format:     transcode.S16LE,
		SampleRate: 16000,
		Channels:   1,
	})
	if err != nil {
		return nil, err
	}
	samples := bytesToFloat32(raw)

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, err
	}
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, err
	}
	wctx.SetTranslate(false)
	if opts.BeamSize > 0 {
		wctx.SetBeamSize(opts.BeamSize)
	}

	var segments []Segment
	onSegment := func(s whisper.Segment) {
		if text := strings.TrimSpace(s.Text); text != "" {
			segments = append(segments, Segment{Text: text})
		}
	}
	e.mu.Lock()
	err = wctx.Process(samples, nil, onSegment, nil)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(b[i*2:]))) / 32768.0
	}
	return out
}
