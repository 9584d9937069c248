package pcm

import (
	"encoding/binary"
	"math"
)

// Mix sums tracks sample by sample. All tracks must already be in f.
// Tracks are aligned at their first sample; the output is as long as the
// longest track and shorter tracks contribute silence past their end.
// Sums are clipped to the int16 range.
//
// Mix of no tracks is an empty slice. Mix of one track returns a copy.
func Mix(f Format, tracks ...[]byte) []byte {
	frame := f.FrameBytes()
	longest := 0
	for _, t := range tracks {
		n := len(t) / frame * frame
		if n > longest {
			longest = n
		}
	}
	out := make([]byte, longest)
	if len(tracks) == 1 {
		copy(out, tracks[0])
		return out
	}

	acc := make([]int32, longest/2)
	for _, t := range tracks {
		n := len(t) / frame * frame
		for i := 0; i < n/2; i++ {
			acc[i] += int32(int16(binary.LittleEndian.Uint16(t[i*2:])))
		}
	}
	for i, s := range acc {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clip(s)))
	}
	return out
}

func clip(s int32) int16 {
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	}
	return int16(s)
}
