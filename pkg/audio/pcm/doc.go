// Package pcm provides helpers for raw 16-bit little-endian PCM audio.
//
// It covers what the recorder needs to handle uncompressed speaker tracks
// without an external transcoder: a Format description, WAV container
// encoding and decoding, resampling to a common rate, and an offline Mix
// that aligns tracks at their start and fills shorter tracks with silence so
// the output is as long as the longest input.
//
// Example usage:
//
//	f := pcm.Format{SampleRate: 48000, Channels: 2}
//	mixed := pcm.Mix(f, trackA, trackB)
//	wav := pcm.EncodeWAV(f, mixed)
package pcm
