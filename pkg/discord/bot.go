// Package discord connects the meeting recorder to Discord: a voice gateway
// that records each speaker into an Ogg/Opus buffer, and a bot that serves
// the start and stop slash commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/haivivi/meetrec/pkg/meeting"
)

// Commands are the slash commands registered by the bot.
var Commands = []*discordgo.ApplicationCommand{
	{Name: "start", Description: "Start recording the voice channel you are in"},
	{Name: "stop", Description: "Stop the recording in this server"},
}

// Recorder is the part of meeting.Recorder used by the bot.
type Recorder interface {
	Start(ctx context.Context, cmd meeting.Command) error
	Stop(ctx context.Context, cmd meeting.Command) error
}

// BotConfig configures a Bot.
type BotConfig struct {
	Token string
	// GuildID registers commands in one guild; empty registers them
	// globally.
	GuildID string
	Logger  *slog.Logger
}

// Bot dispatches slash commands to a Recorder.
type Bot struct {
	cfg     BotConfig
	session *discordgo.Session
	rec     Recorder
	logger  *slog.Logger

	ctx    context.Context
	remove func()
}

// NewSession creates a Discord session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord: token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
	return s, nil
}

// NewBot returns a bot on session s. The session is opened by Open.
func NewBot(s *discordgo.Session, rec Recorder, cfg BotConfig) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{cfg: cfg, session: s, rec: rec, logger: logger}
}

// Open connects to Discord and registers the slash commands. Commands run
// with a context derived from ctx.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.remove = b.session.AddHandler(b.onInteraction)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, Commands, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	b.logger.Info("discord: bot ready",
		slog.String("user", b.session.State.User.Username),
		slog.String("guild", b.cfg.GuildID),
	)
	return nil
}

// Close disconnects from Discord.
func (b *Bot) Close() error {
	if b.remove != nil {
		b.remove()
	}
	return b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID == "" {
		return
	}
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := newCommand(s, i.Interaction)
	name := i.ApplicationCommandData().Name
	log := b.logger.With(slog.String("command", name), slog.String("guild", i.GuildID), slog.String("user", cmd.UserID()))

	var run func(context.Context, meeting.Command) error
	switch name {
	case "start":
		run = b.rec.Start
	case "stop":
		run = b.rec.Stop
	default:
		return
	}
	// Joining voice can outlast the interaction deadline.
	if err := cmd.Defer(ctx); err != nil {
		log.Warn("discord: defer response", slog.Any("error", err))
	}
	if err := run(ctx, cmd); err != nil {
		log.Warn("discord: command failed", slog.Any("error", err))
	}
}

// command adapts an interaction to meeting.Command.
type command struct {
	s *discordgo.Session
	i *discordgo.Interaction

	mu        sync.Mutex
	deferred  bool
	responded bool
}

func newCommand(s *discordgo.Session, i *discordgo.Interaction) *command {
	return &command{s: s, i: i}
}

func (c *command) UserID() string {
	if c.i.Member != nil && c.i.Member.User != nil {
		return c.i.Member.User.ID
	}
	if c.i.User != nil {
		return c.i.User.ID
	}
	return ""
}

func (c *command) RoomID() string { return c.i.GuildID }

func (c *command) VoiceChannel() (meeting.ChannelRef, bool) {
	vs, err := c.s.State.VoiceState(c.i.GuildID, c.UserID())
	if err != nil || vs.ChannelID == "" {
		return meeting.ChannelRef{}, false
	}
	return meeting.ChannelRef{RoomID: c.i.GuildID, ChannelID: vs.ChannelID}, true
}

func (c *command) TextChannel() meeting.Channel {
	return &TextChannel{s: c.s, id: c.i.ChannelID}
}

// Defer acknowledges the interaction with a "thinking" state. The first
// Respond then edits that message.
func (c *command) Defer(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deferred || c.responded {
		return nil
	}
	err := c.s.InteractionRespond(c.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err == nil {
		c.deferred = true
	}
	return err
}

// Respond answers the interaction; later calls post follow-up messages.
func (c *command) Respond(ctx context.Context, text string) error {
	c.mu.Lock()
	first := !c.responded
	deferred := c.deferred
	c.responded = true
	c.mu.Unlock()
	switch {
	case first && deferred:
		_, err := c.s.InteractionResponseEdit(c.i, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx))
		return err
	case first:
		return c.s.InteractionRespond(c.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: text},
		}, discordgo.WithContext(ctx))
	}
	_, err := c.s.FollowupMessageCreate(c.i, false, &discordgo.WebhookParams{Content: text}, discordgo.WithContext(ctx))
	return err
}

// TextChannel posts messages to a Discord text channel.
type TextChannel struct {
	s  *discordgo.Session
	id string
}

var _ meeting.Channel = (*TextChannel)(nil)

func (t *TextChannel) ID() string { return t.id }

// Name returns the cached channel name, or the ID when the channel is not
// in the state cache.
func (t *TextChannel) Name() string {
	if ch, err := t.s.State.Channel(t.id); err == nil && ch.Name != "" {
		return ch.Name
	}
	return t.id
}

// discordMessageLimit is the maximum length of a message body.
const discordMessageLimit = 2000

func (t *TextChannel) Send(ctx context.Context, text string) error {
	if len([]rune(text)) > discordMessageLimit {
		text = meeting.Truncate(text, discordMessageLimit-3)
	}
	_, err := t.s.ChannelMessageSend(t.id, text, discordgo.WithContext(ctx))
	return err
}
