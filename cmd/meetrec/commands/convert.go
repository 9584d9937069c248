package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/cli"
)

var convertOpts struct {
	start    time.Duration
	duration time.Duration
	format   string
	bitrate  string
	rate     int
	channels int
}

var convertCmd = &cobra.Command{
	Use:   "convert INPUT -o OUTPUT",
	Short: "Convert or trim an audio file",
	Long: `Re-encode an audio file, optionally cutting a window out of it. This is
the same conversion the bot applies to recorded tracks.

The output format defaults to the extension of OUTPUT. WAV to WAV or s16le
jobs, including resampling, run in-process; everything else uses ffmpeg.

Examples:
  meetrec convert user_1.ogg -o user_1.mp3
  meetrec convert meeting.mp3 -o part.mp3 --start 10m --duration 5m
  meetrec convert meeting.mp3 -o speech.wav --rate 16000 --channels 1
  meetrec convert track.wav -o speech.wav --rate 16000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFile == "" {
			return errors.New("output file is required (-o)")
		}
		opts, err := convertOptions(outputFile)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		mixer := &transcode.FFmpeg{Bin: "ffmpeg"}
		if cfg, err := rawConfig(); err == nil && cfg.FFmpegPath != "" {
			mixer.Bin = cfg.FFmpegPath
		}
		out, err := mixer.Convert(cmd.Context(), data, opts)
		if err != nil {
			return err
		}
		if err := cli.OutputBytes(out, outputFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, %s)\n", outputFile, opts.Format, cli.FormatBytes(int64(len(out))))
		return nil
	},
}

func init() {
	f := convertCmd.Flags()
	f.DurationVar(&convertOpts.start, "start", 0, "start offset of the window to keep")
	f.DurationVar(&convertOpts.duration, "duration", 0, "length of the window to keep (0 keeps the rest)")
	f.StringVar(&convertOpts.format, "to", "", "output format: mp3, wav, ogg or s16le")
	f.StringVar(&convertOpts.bitrate, "bitrate", "", "audio bitrate, e.g. 64k")
	f.IntVar(&convertOpts.rate, "rate", 0, "output sample rate in Hz")
	f.IntVar(&convertOpts.channels, "channels", 0, "output channel count")
	rootCmd.AddCommand(convertCmd)
}

func convertOptions(out string) (transcode.ConvertOptions, error) {
	format := transcode.Format(convertOpts.format)
	if format == "" {
		format = transcode.Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), "."))
	}
	opts := transcode.ConvertOptions{
		Format:       format,
		Bitrate:      convertOpts.bitrate,
		SampleRate:   convertOpts.rate,
		Channels:     convertOpts.channels,
		TrimStart:    convertOpts.start,
		TrimDuration: convertOpts.duration,
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
