package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/meetrec/cmd/meetrec/internal/build"
	"github.com/haivivi/meetrec/pkg/discord"
	"github.com/haivivi/meetrec/pkg/meeting"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord recording bot",
	Long: `Connect to Discord, register the /start and /stop slash commands and
record meetings until interrupted.

On SIGINT or SIGTERM every active recording is stopped and processed before
the process exits, bounded by --shutdown-timeout.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Minute, "time allowed for active recordings to finish processing")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireDiscord(); err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := newComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	rec, err := meeting.NewRecorder(comps.recorderConfig(cfg, discord.NewGateway(session, logger), logger))
	if err != nil {
		return err
	}
	bot := discord.NewBot(session, rec, discord.BotConfig{
		Token:   cfg.DiscordToken,
		GuildID: cfg.DiscordGuildID,
		Logger:  logger,
	})
	if err := bot.Open(ctx); err != nil {
		return err
	}
	logger.Info("meetrec: serving",
		slog.String("version", build.Version),
		slog.String("storage", cfg.StorageBackend),
		slog.String("transcribe", cfg.TranscribeBackend),
		slog.String("summary_mode", cfg.SummaryMode),
		slog.Duration("segment_interval", cfg.SegmentInterval),
	)

	<-ctx.Done()
	logger.Info("meetrec: shutting down", slog.Int("active", rec.Registry().Len()))

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rec.Shutdown(sctx); err != nil {
		logger.Warn("meetrec: recordings still processing at exit", slog.Any("error", err))
	}
	return bot.Close()
}
