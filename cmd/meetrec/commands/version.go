package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/cmd/meetrec/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("format") {
			return output(cmd, build.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), build.String())
		if IsVerbose() {
			fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", build.Get().Go)
			if cfg, err := rawConfig(); err == nil && cfg.File != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n", cfg.File)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  config: (environment only)\n")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
