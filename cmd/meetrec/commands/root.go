package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/cmd/meetrec/internal/config"
	"github.com/haivivi/meetrec/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	outputFormat string
	outputFile   string

	// Global configuration (read at init time, validated on use)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "meetrec",
	Short: "Record, transcribe and summarize Discord voice meetings",
	Long: `meetrec - a Discord bot that records voice meetings.

Invite the bot to a server, join a voice channel and run /start. On /stop
the recording is mixed, transcribed and summarized, and every artifact is
uploaded to the configured storage backend.

Configuration is read from the environment and from a .env file in the
working directory (override the path with ENV_PATH).

Examples:
  # Check ffmpeg, credentials and storage settings
  meetrec doctor

  # Run the bot
  meetrec serve

  # Inspect recorded meetings
  meetrec meetings list --channel 123456789
  meetrec meetings show standup --format json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", string(cli.FormatYAML), "output format (yaml, json, table)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
}

// configLoadErr stores the error from config.Read() for deferred reporting.
var configLoadErr error

func initConfig() {
	globalConfig, configLoadErr = config.Read()
}

// GetConfig returns the validated global configuration.
func GetConfig() (*config.Config, error) {
	cfg, err := rawConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rawConfig returns the configuration without validating it.
func rawConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Read()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func output(cmd *cobra.Command, v any) error {
	opts := cli.OutputOptions{
		Format: cli.OutputFormat(outputFormat),
		File:   outputFile,
	}
	if outputFile == "" {
		opts.Writer = cmd.OutOrStdout()
	}
	return cli.Output(v, opts)
}
