package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/cmd/meetrec/internal/config"
	"github.com/haivivi/meetrec/pkg/cli"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials and ffmpeg",
	Long: `Report whether meetrec is ready to serve: the configuration is valid,
every selected backend has credentials, ffmpeg runs and the whisper model
exists when the local transcriber is selected.

Exits non-zero when any check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := rawConfig()
		if err != nil {
			return err
		}
		r := doctor(cmd.Context(), cfg)
		fmt.Fprint(cmd.OutOrStdout(), r.Render(cli.NewStyles(cli.DefaultTheme)))
		if r.Failed() {
			return errors.New("doctor: some checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctor(ctx context.Context, cfg *config.Config) cli.Report {
	r := cli.Report{Title: "meetrec doctor"}
	add := func(name string, status cli.CheckStatus, detail string) {
		r.Checks = append(r.Checks, cli.Check{Name: name, Status: status, Detail: detail})
	}

	if cfg.File != "" {
		add("config file", cli.CheckOK, cfg.File)
	} else {
		add("config file", cli.CheckWarn, "none found, using environment only")
	}

	if err := cfg.Validate(); err != nil {
		for _, line := range validationLines(err) {
			add("config", cli.CheckFail, line)
		}
	} else {
		add("config", cli.CheckOK, "valid")
	}

	if err := cfg.RequireDiscord(); err != nil {
		add("discord", cli.CheckFail, "DISCORD_TOKEN is not set")
	} else {
		detail := "token " + cfg.Redacted().DiscordToken
		if cfg.DiscordGuildID != "" {
			detail += ", guild " + cfg.DiscordGuildID
		} else {
			detail += ", global commands"
		}
		add("discord", cli.CheckOK, detail)
	}

	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if v, err := newMixer(cfg, nil).Version(vctx); err != nil {
		add("ffmpeg", cli.CheckFail, err.Error())
	} else {
		add("ffmpeg", cli.CheckOK, v)
	}

	switch cfg.TranscribeBackend {
	case config.TranscribeWhisper:
		switch _, err := os.Stat(cfg.WhisperModelPath); {
		case !whisperBuiltin:
			add("transcribe", cli.CheckFail, errNoWhisperBuild.Error())
		case err != nil:
			add("transcribe", cli.CheckFail, err.Error())
		default:
			add("transcribe", cli.CheckOK, "whisper.cpp "+cfg.WhisperModelPath)
		}
	default:
		add("transcribe", cli.CheckOK, "openai "+cfg.TranscribeModel+", language "+cfg.TranscribeLanguage)
	}

	switch cfg.SummaryMode {
	case "none":
		add("summary", cli.CheckWarn, "disabled")
	case "structured":
		add("summary", cli.CheckOK, "structured via "+cfg.StructuredBackend())
	case "both":
		add("summary", cli.CheckOK, "text via "+cfg.SummaryBackend+", structured via "+cfg.StructuredBackend())
	default:
		add("summary", cli.CheckOK, "text via "+cfg.SummaryBackend)
	}

	add("storage", cli.CheckOK, storageDetail(cfg))

	if cfg.SegmentInterval > 0 {
		add("segments", cli.CheckOK, "flush every "+cfg.SegmentInterval.String())
	} else {
		add("segments", cli.CheckOK, "single recording per meeting")
	}

	if cfg.IndexDir == "" {
		add("index", cli.CheckWarn, "in-memory, meeting history is lost on restart")
	} else {
		add("index", cli.CheckOK, cfg.IndexDir)
	}
	return r
}

func storageDetail(cfg *config.Config) string {
	switch cfg.StorageBackend {
	case config.StorageS3:
		loc := "s3://" + cfg.StorageBucket
		if cfg.S3Prefix != "" {
			loc += "/" + strings.Trim(cfg.S3Prefix, "/")
		}
		if cfg.S3Endpoint != "" {
			loc += " at " + cfg.S3Endpoint
		}
		return loc
	case config.StorageLocal:
		return "local " + cfg.LocalDir
	default:
		return "supabase " + cfg.SupabaseURL + " bucket " + cfg.StorageBucket
	}
}

// validationLines flattens config errors into one line per problem.
func validationLines(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		lines := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			lines = append(lines, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
		}
		return lines
	}
	return strings.Split(err.Error(), "\n")
}
