// Package transcode converts and mixes encoded audio buffers.
//
// Two Mixer implementations are provided. FFmpeg shells out to the ffmpeg
// binary and handles any container ffmpeg can probe; it hands WAV-only jobs
// to PCM. PCM mixes and resamples WAV or raw s16le buffers in-process.
//
// Formats are stateless tags; every call builds its own encoder or process,
// so a Mixer may be shared by concurrent sessions.
package transcode

import (
	"bytes"
	"context"
	"time"
)

// Format is an output container tag.
type Format string

const (
	MP3   Format = "mp3"
	WAV   Format = "wav"
	OGG   Format = "ogg"
	S16LE Format = "s16le"
)

// Codec returns the ffmpeg audio codec used to produce f.
func (f Format) Codec() string {
	switch f {
	case MP3:
		return "libmp3lame"
	case OGG:
		return "libopus"
	default:
		return "pcm_s16le"
	}
}

// ContentType returns the MIME type used when uploading a buffer in f.
func (f Format) ContentType() string {
	switch f {
	case MP3:
		return "audio/mp3"
	case WAV:
		return "audio/wav"
	case OGG:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the file extension for f including the dot.
func (f Format) Ext() string {
	switch f {
	case MP3, WAV, OGG:
		return "." + string(f)
	default:
		return ".pcm"
	}
}

// Sniff guesses the container of data from its leading bytes. Unknown data
// is reported as S16LE.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("OggS")):
		return OGG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return WAV
	case bytes.HasPrefix(data, []byte("ID3")):
		return MP3
	case len(data) >= 2 && data[0] == 0xff && data[1]&0xe0 == 0xe0:
		return MP3
	}
	return S16LE
}

// Mixer combines and converts encoded audio buffers.
//
// Mix of zero streams returns an empty buffer and Mix of one stream is
// Convert to the requested format. Two or more streams are aligned at their
// start; the output lasts as long as the longest stream and shorter streams
// are padded with silence.
type Mixer interface {
	Mix(ctx context.Context, streams [][]byte, format Format) ([]byte, error)
	Convert(ctx context.Context, data []byte, opts ConvertOptions) ([]byte, error)
	ExtractSegment(ctx context.Context, data []byte, start, duration time.Duration) ([]byte, error)
}
