package pcm

import (
	"fmt"
	"time"
)

// Common formats.
var (
	// L16Mono16K is audio/L16; rate=16000; channels=1, the input format of
	// whisper-style ASR engines.
	L16Mono16K = Format{SampleRate: 16000, Channels: 1}

	// L16Stereo48K is the decoded format of Discord voice (Opus 48 kHz stereo).
	L16Stereo48K = Format{SampleRate: 48000, Channels: 2}
)

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate reports whether the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("pcm: unsupported channel count %d", f.Channels)
	}
	return nil
}

// FrameBytes returns the size in bytes of one sample across all channels.
func (f Format) FrameBytes() int {
	return 2 * f.Channels
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	frames := int64(time.Duration(f.SampleRate) * d / time.Second)
	return frames * int64(f.FrameBytes())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	frames := bytes / int64(f.FrameBytes())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Silence returns d worth of zero samples.
func (f Format) Silence(d time.Duration) []byte {
	return make([]byte, f.BytesInDuration(d))
}

func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate, f.Channels)
}
