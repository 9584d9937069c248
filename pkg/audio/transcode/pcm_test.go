package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/meetrec/pkg/audio/pcm"
)

func tone(f pcm.Format, d time.Duration, amp int16) []byte {
	b := make([]byte, f.BytesInDuration(d))
	for i := 0; i+1 < len(b); i += 2 {
		binary.LittleEndian.PutUint16(b[i:], uint16(amp))
	}
	return b
}

func TestPCMMixEmptyAndSingle(t *testing.T) {
	ctx := context.Background()
	m := NewPCM(pcm.L16Mono16K)

	got, err := m.Mix(ctx, nil, WAV)
	if err != nil || len(got) != 0 {
		t.Fatalf("Mix(nil) = %d bytes, %v", len(got), err)
	}

	x := pcm.EncodeWAV(pcm.L16Mono16K, tone(pcm.L16Mono16K, time.Second, 1000))
	mixed, err := m.Mix(ctx, [][]byte{x}, WAV)
	if err != nil {
		t.Fatal(err)
	}
	converted, err := m.Convert(ctx, x, ConvertOptions{Format: WAV})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mixed, converted) {
		t.Fatal("Mix([x]) != Convert(x)")
	}
}

func TestPCMMixDurationIsLongest(t *testing.T) {
	f := pcm.L16Mono16K
	m := NewPCM(f)
	a := pcm.EncodeWAV(f, tone(f, 5*time.Second, 1000))
	b := pcm.EncodeWAV(f, tone(f, 2*time.Second, 500))

	out, err := m.Mix(context.Background(), [][]byte{a, b}, WAV)
	if err != nil {
		t.Fatal(err)
	}
	gotFmt, samples, err := pcm.DecodeWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := gotFmt.Duration(int64(len(samples))); got != 5*time.Second {
		t.Fatalf("duration = %v, want 5s", got)
	}
	if s := int16(binary.LittleEndian.Uint16(samples[0:])); s != 1500 {
		t.Fatalf("overlap sample = %d, want 1500", s)
	}
	last := len(samples) - 2
	if s := int16(binary.LittleEndian.Uint16(samples[last:])); s != 1000 {
		t.Fatalf("tail sample = %d, want 1000", s)
	}
}

func TestPCMConvertTrim(t *testing.T) {
	f := pcm.L16Mono16K
	m := NewPCM(f)
	in := tone(f, 3*time.Second, 10)

	out, err := m.ExtractSegment(context.Background(), in, time.Second, 1500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	_, samples, err := pcm.DecodeWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Duration(int64(len(samples))); got != 1500*time.Millisecond {
		t.Fatalf("segment duration = %v, want 1.5s", got)
	}
}

func TestPCMRejectsCompressed(t *testing.T) {
	m := NewPCM(pcm.L16Mono16K)
	_, err := m.Mix(context.Background(), [][]byte{[]byte("OggS...."), []byte("OggS....")}, WAV)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	_, err = m.Convert(context.Background(), tone(pcm.L16Mono16K, time.Second, 1), ConvertOptions{Format: MP3})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for mp3 output, got %v", err)
	}
}
