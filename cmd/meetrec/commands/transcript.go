package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/pkg/artifact"
	"github.com/haivivi/meetrec/pkg/cli"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript NAME",
	Short: "Print the transcript of a meeting",
	Long: `Print the transcript of a meeting from storage.

For segmented recordings the text segments are joined in order, which also
works while the meeting is still being recorded. Otherwise the final
transcript file is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := rawConfig()
		if err != nil {
			return err
		}
		blobs, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		store := artifact.New(blobs, nil)
		name := args[0]

		segs, err := store.ListTextSegments(cmd.Context(), name)
		if err != nil {
			return err
		}
		var text string
		if len(segs) > 0 {
			text = store.ConcatenateSegments(cmd.Context(), nil, name)
		} else {
			data, err := blobs.Get(cmd.Context(), artifact.TranscriptPath(name))
			if err != nil {
				return fmt.Errorf("meeting %q has no transcript: %w", name, err)
			}
			text = string(data)
		}
		text = strings.TrimRight(text, "\n")
		if outputFile != "" {
			return cli.OutputBytes([]byte(text+"\n"), outputFile)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
}
