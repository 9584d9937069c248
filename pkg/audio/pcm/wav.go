package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned by DecodeWAV when the input has no RIFF/WAVE header.
var ErrNotWAV = errors.New("pcm: not a WAV file")

const wavFormatPCM = 1

// EncodeWAV wraps raw samples in a canonical 44-byte WAV header.
func EncodeWAV(f Format, data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(data))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate*f.FrameBytes()))
	binary.Write(&buf, binary.LittleEndian, uint16(f.FrameBytes()))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// DecodeWAV parses a 16-bit PCM WAV file and returns its format and samples.
// Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(b []byte) (Format, []byte, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Format{}, nil, ErrNotWAV
	}
	var (
		f       Format
		haveFmt bool
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(b) {
			// Streamed WAVs often carry a bogus data size; take what is there.
			end = len(b)
		}
		switch id {
		case "fmt ":
			if end-body < 16 {
				return Format{}, nil, fmt.Errorf("pcm: short fmt chunk")
			}
			tag := binary.LittleEndian.Uint16(b[body:])
			bits := binary.LittleEndian.Uint16(b[body+14:])
			if tag != wavFormatPCM || bits != 16 {
				return Format{}, nil, fmt.Errorf("pcm: unsupported WAV encoding (tag=%d bits=%d)", tag, bits)
			}
			f.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			f.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Format{}, nil, fmt.Errorf("pcm: data chunk before fmt chunk")
			}
			if err := f.Validate(); err != nil {
				return Format{}, nil, err
			}
			return f, b[body:end], nil
		}
		pos = end + size%2
	}
	return Format{}, nil, fmt.Errorf("pcm: no data chunk")
}
