package transcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/meetrec/pkg/audio/pcm"
)

// ErrUnsupportedFormat is returned by PCM for compressed formats.
var ErrUnsupportedFormat = errors.New("transcode: format not supported by the in-process mixer")

// PCM implements Mixer in-process for WAV and raw s16le buffers.
// Raw input is assumed to be in Format. WAV input at another rate or
// channel count is converted to Format before mixing.
type PCM struct {
	Format pcm.Format
}

var _ Mixer = (*PCM)(nil)

// NewPCM returns an in-process mixer producing f.
func NewPCM(f pcm.Format) *PCM {
	return &PCM{Format: f}
}

func (p *PCM) Mix(ctx context.Context, streams [][]byte, format Format) ([]byte, error) {
	switch len(streams) {
	case 0:
		return []byte{}, nil
	case 1:
		return p.Convert(ctx, streams[0], ConvertOptions{Format: format})
	}
	if err := checkPCMFormat(format); err != nil {
		return nil, err
	}
	tracks := make([][]byte, 0, len(streams))
	for i, s := range streams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, err := p.decode(s, p.Format)
		if err != nil {
			return nil, fmt.Errorf("transcode: stream %d: %w", i, err)
		}
		tracks = append(tracks, samples)
	}
	return p.encode(format, p.Format, pcm.Mix(p.Format, tracks...)), nil
}

func (p *PCM) Convert(ctx context.Context, data []byte, opts ConvertOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkPCMFormat(opts.Format); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst := p.Format
	if opts.SampleRate > 0 {
		dst.SampleRate = opts.SampleRate
	}
	if opts.Channels > 0 {
		dst.Channels = opts.Channels
	}
	samples, err := p.decode(data, dst)
	if err != nil {
		return nil, err
	}
	samples = trim(dst, samples, opts.TrimStart, opts.TrimDuration)
	return p.encode(opts.Format, dst, samples), nil
}

// ExtractSegment cuts a WAV segment out of data.
func (p *PCM) ExtractSegment(ctx context.Context, data []byte, start, duration time.Duration) ([]byte, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("transcode: segment duration must be positive, got %v", duration)
	}
	return p.Convert(ctx, data, ConvertOptions{Format: WAV, TrimStart: start, TrimDuration: duration})
}

// decode returns raw samples of data converted to dst.
func (p *PCM) decode(data []byte, dst pcm.Format) ([]byte, error) {
	src := p.Format
	samples := data
	if Sniff(data) == WAV {
		f, s, err := pcm.DecodeWAV(data)
		if err != nil {
			return nil, err
		}
		src, samples = f, s
	} else if Sniff(data) != S16LE {
		return nil, ErrUnsupportedFormat
	}
	if src == dst {
		return samples, nil
	}
	return pcm.Convert(samples, src, dst)
}

func (p *PCM) encode(format Format, f pcm.Format, samples []byte) []byte {
	if format == WAV {
		return pcm.EncodeWAV(f, samples)
	}
	return samples
}

func checkPCMFormat(f Format) error {
	if f != WAV && f != S16LE {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return nil
}

func trim(f pcm.Format, samples []byte, start, duration time.Duration) []byte {
	if start > 0 {
		off := f.BytesInDuration(start)
		if off >= int64(len(samples)) {
			return []byte{}
		}
		samples = samples[off:]
	}
	if duration > 0 {
		n := f.BytesInDuration(duration)
		if n < int64(len(samples)) {
			samples = samples[:n]
		}
	}
	return samples
}
