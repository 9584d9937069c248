// Package audio groups the audio helpers used by the recorder:
//
//   - pcm: raw 16-bit PCM, WAV framing, mixing and resampling
//   - transcode: converting and mixing encoded buffers (ffmpeg or pure PCM)
package audio
