package pcm

import (
	"encoding/binary"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Convert resamples and remixes data from src to dst. Channel conversion
// averages stereo down to mono or duplicates mono up to stereo.
func Convert(data []byte, src, dst Format) ([]byte, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := dst.Validate(); err != nil {
		return nil, err
	}
	samples := toFloat(data[:len(data)/src.FrameBytes()*src.FrameBytes()])
	samples = convertChannels(samples, src.Channels, dst.Channels)

	if src.SampleRate != dst.SampleRate && len(samples) > 0 {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(src.SampleRate),
			OutputRate: float64(dst.SampleRate),
			Channels:   dst.Channels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("pcm: create resampler: %w", err)
		}
		out, err := rs.Process(samples)
		if err != nil {
			return nil, fmt.Errorf("pcm: resample: %w", err)
		}
		samples = out
	}
	return fromFloat(samples), nil
}

func convertChannels(in []float64, from, to int) []float64 {
	switch {
	case from == to:
		return in
	case from == 2 && to == 1:
		out := make([]float64, len(in)/2)
		for i := range out {
			out[i] = (in[2*i] + in[2*i+1]) / 2
		}
		return out
	default:
		out := make([]float64, len(in)*2)
		for i, s := range in {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out
	}
}

func toFloat(data []byte) []float64 {
	out := make([]float64, len(data)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}
	return out
}

func fromFloat(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s >= 1.0:
			v = 32767
		case s < -1.0:
			v = -32768
		default:
			v = int16(s * 32767.0)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
