package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/pkg/artifact"
	"github.com/haivivi/meetrec/pkg/index"
)

var (
	meetingsChannel string
	meetingsLimit   int
	showRemote      bool
)

var meetingsCmd = &cobra.Command{
	Use:     "meetings",
	Aliases: []string{"meeting", "m"},
	Short:   "List and show recorded meetings",
	Long: `Read the meeting index kept under INDEX_DIR.

The index is filled by 'meetrec serve' each time a recording finishes. With
no INDEX_DIR the bot keeps it in memory and these commands see nothing.`,
}

var meetingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded meetings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := openIndexFromConfig()
		if err != nil {
			return err
		}
		defer idx.Close()

		var list meetingList
		for md, err := range idx.List(cmd.Context(), index.ListOptions{ChannelID: meetingsChannel, Limit: meetingsLimit}) {
			if err != nil {
				return err
			}
			list = append(list, md)
		}
		if list == nil {
			list = meetingList{}
		}
		return output(cmd, list)
	},
}

var meetingsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show the metadata of one meeting",
	Long: `Show the metadata of one meeting from the index. With --remote, without
INDEX_DIR or when the index has no entry, the metadata file is read from
storage instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := rawConfig()
		if err != nil {
			return err
		}
		if !showRemote && cfg.IndexDir != "" {
			idx, err := openIndex(cfg, nil)
			if err != nil {
				return err
			}
			md, err := idx.Get(cmd.Context(), name)
			idx.Close()
			switch {
			case err == nil:
				return output(cmd, md)
			case !errors.Is(err, index.ErrNotFound):
				return err
			}
		}

		blobs, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		md, err := artifact.New(blobs, nil).GetMetadata(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("meeting %q: %w", name, err)
		}
		return output(cmd, md)
	},
}

func init() {
	meetingsListCmd.Flags().StringVar(&meetingsChannel, "channel", "", "only meetings recorded from this text channel ID")
	meetingsListCmd.Flags().IntVar(&meetingsLimit, "limit", 0, "maximum number of meetings (0 for all)")
	meetingsShowCmd.Flags().BoolVar(&showRemote, "remote", false, "read the metadata file from storage")

	meetingsCmd.AddCommand(meetingsListCmd, meetingsShowCmd)
	rootCmd.AddCommand(meetingsCmd)
}

func openIndexFromConfig() (index.Index, error) {
	cfg, err := rawConfig()
	if err != nil {
		return nil, err
	}
	if cfg.IndexDir == "" {
		return nil, errors.New("INDEX_DIR is not set, the meeting index is only kept in memory by 'meetrec serve'")
	}
	return openIndex(cfg, nil)
}

// meetingList renders as a table with --format table.
type meetingList []artifact.Metadata

func (meetingList) Headers() []string {
	return []string{"NAME", "CHANNEL", "STARTED", "DURATION", "USERS", "MODE", "COMPLETE"}
}

func (l meetingList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, md := range l {
		rows[i] = []string{
			md.MeetingName,
			md.ChannelName,
			md.StartTime.Local().Format("2006-01-02 15:04"),
			md.DurationFormatted,
			strconv.Itoa(md.NumUsers),
			md.Mode,
			strconv.FormatBool(md.ProcessingCompleted),
		}
	}
	return rows
}
