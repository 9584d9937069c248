package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/haivivi/meetrec/pkg/audio/pcm"
	"github.com/haivivi/meetrec/pkg/meeterr"
)

// FFmpeg implements Mixer by running the ffmpeg binary. Inputs are written
// to temporary files and the output is read from the process's stdout.
//
// Jobs whose inputs are all 16-bit WAV and whose output is WAV or s16le run
// in-process on PCM instead; no process is started for them.
type FFmpeg struct {
	// Bin is the ffmpeg executable. Defaults to "ffmpeg" on PATH.
	Bin string

	// TempDir holds the input files. Defaults to os.TempDir().
	TempDir string

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

var _ Mixer = (*FFmpeg)(nil)

func (f *FFmpeg) bin() string {
	if f.Bin != "" {
		return f.Bin
	}
	return "ffmpeg"
}

func (f *FFmpeg) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Mix combines streams with ffmpeg's amix filter using the longest input as
// the output duration.
func (f *FFmpeg) Mix(ctx context.Context, streams [][]byte, format Format) ([]byte, error) {
	switch len(streams) {
	case 0:
		return []byte{}, nil
	case 1:
		return f.Convert(ctx, streams[0], ConvertOptions{Format: format})
	}
	opts := ConvertOptions{Format: format}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if p, ok := inProcess(streams, format); ok {
		f.logger().Debug("transcode: mixing in-process", slog.Int("streams", len(streams)), slog.String("format", string(format)))
		return p.Mix(ctx, streams, format)
	}

	inputs, cleanup, err := f.writeInputs(streams)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	args := baseArgs()
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", "amix=inputs="+strconv.Itoa(len(inputs))+":duration=longest:dropout_transition=0",
		"-c:a", format.Codec(),
		"-f", string(format),
		"-",
	)
	return f.run(ctx, "mix", args)
}

// Convert re-encodes data according to opts.
func (f *FFmpeg) Convert(ctx context.Context, data []byte, opts ConvertOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if p, ok := inProcess([][]byte{data}, opts.Format); ok {
		f.logger().Debug("transcode: converting in-process", slog.String("format", string(opts.Format)))
		return p.Convert(ctx, data, opts)
	}
	inputs, cleanup, err := f.writeInputs([][]byte{data})
	defer cleanup()
	if err != nil {
		return nil, err
	}
	args := append(baseArgs(), "-i", inputs[0])
	args = append(args, opts.args()...)
	return f.run(ctx, "convert", args)
}

// ExtractSegment cuts duration of audio starting at start and encodes it
// as mp3.
func (f *FFmpeg) ExtractSegment(ctx context.Context, data []byte, start, duration time.Duration) ([]byte, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("transcode: segment duration must be positive, got %v", duration)
	}
	return f.Convert(ctx, data, ConvertOptions{
		Format:       MP3,
		TrimStart:    start,
		TrimDuration: duration,
	})
}

// Version returns the first line of `ffmpeg -version`.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	out, err := f.run(ctx, "version", []string{"-version"})
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", &meeterr.ExternalToolError{Tool: "ffmpeg", Op: "version", Err: errors.New("no version output")}
	}
	return line, nil
}

// inProcess returns a PCM mixer in the format of the first stream when
// every stream is a WAV file PCM can decode and out is WAV or S16LE.
func inProcess(streams [][]byte, out Format) (*PCM, bool) {
	if len(streams) == 0 || (out != WAV && out != S16LE) {
		return nil, false
	}
	var base pcm.Format
	for i, s := range streams {
		if Sniff(s) != WAV {
			return nil, false
		}
		f, _, err := pcm.DecodeWAV(s)
		if err != nil || f.Validate() != nil {
			return nil, false
		}
		if i == 0 {
			base = f
		}
	}
	return NewPCM(base), true
}

func baseArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
}

// writeInputs materializes each buffer as a temp file. The returned cleanup
// removes every file created so far and must be called even on error.
func (f *FFmpeg) writeInputs(streams [][]byte) ([]string, func(), error) {
	var paths []string
	cleanup := func() {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				f.logger().Warn("transcode: remove temp file", slog.String("path", p), slog.Any("error", err))
			}
		}
	}
	for _, data := range streams {
		tmp, err := os.CreateTemp(f.TempDir, "meetrec-*"+Sniff(data).Ext())
		if err != nil {
			return paths, cleanup, fmt.Errorf("transcode: create temp file: %w", err)
		}
		paths = append(paths, tmp.Name())
		_, werr := tmp.Write(data)
		cerr := tmp.Close()
		if werr != nil {
			return paths, cleanup, fmt.Errorf("transcode: write temp file: %w", werr)
		}
		if cerr != nil {
			return paths, cleanup, fmt.Errorf("transcode: close temp file: %w", cerr)
		}
	}
	return paths, cleanup, nil
}

func (f *FFmpeg) run(ctx context.Context, op string, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.bin(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, &meeterr.ExternalToolError{
			Tool:   "ffmpeg",
			Op:     op,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	f.logger().Debug("transcode: ffmpeg done",
		slog.String("op", op),
		slog.Int("bytes", stdout.Len()),
		slog.Duration("took", time.Since(start)),
	)
	return stdout.Bytes(), nil
}
