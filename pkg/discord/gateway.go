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

// Gateway joins Discord voice channels for the recorder.
type Gateway struct {
	session *discordgo.Session
	logger  *slog.Logger
}

var _ meeting.Gateway = (*Gateway)(nil)

// NewGateway returns a gateway on an open session.
func NewGateway(s *discordgo.Session, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{session: s, logger: logger}
}

// Connect joins ch undeafened and muted-off so audio can be received.
func (g *Gateway) Connect(ctx context.Context, ch meeting.ChannelRef) (meeting.Voice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := g.session.ChannelVoiceJoin(ch.RoomID, ch.ChannelID, false, false)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %s: %w", ch.ChannelID, err)
	}
	return &Voice{
		vc:     vc,
		cap:    newCapture(),
		logger: g.logger.With(slog.String("guild", ch.RoomID), slog.String("voice_channel", ch.ChannelID)),
	}, nil
}

// Voice captures the audio of a joined voice channel.
type Voice struct {
	vc     *discordgo.VoiceConnection
	cap    *capture
	logger *slog.Logger

	mu       sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

var _ meeting.Voice = (*Voice)(nil)

var errNotCapturing = errors.New("discord: capture not started")

// StartCapture reads the connection's Opus packets until StopCapture, then
// calls onComplete with everything captured since the last Drain.
func (v *Voice) StartCapture(onComplete func([]meeting.SpeakerBuffer)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil {
		return errors.New("discord: capture already started")
	}
	if v.vc.OpusRecv == nil {
		return errors.New("discord: voice connection does not receive audio")
	}
	v.stop = make(chan struct{})
	v.vc.AddHandler(func(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
		v.cap.speaking(uint32(su.SSRC), su.UserID)
	})
	go v.receive(v.stop, onComplete)
	return nil
}

func (v *Voice) receive(stop <-chan struct{}, onComplete func([]meeting.SpeakerBuffer)) {
	defer func() { onComplete(v.cap.drain()) }()
	for {
		select {
		case <-stop:
			return
		case p, ok := <-v.vc.OpusRecv:
			if !ok {
				return
			}
			if err := v.cap.write(p); err != nil {
				v.logger.Warn("discord: drop packet", slog.Any("error", err))
			}
		}
	}
}

func (v *Voice) StopCapture() error {
	v.mu.Lock()
	stop := v.stop
	v.mu.Unlock()
	if stop == nil {
		return errNotCapturing
	}
	v.stopOnce.Do(func() { close(stop) })
	return nil
}

func (v *Voice) IsConnected() bool {
	v.vc.RLock()
	defer v.vc.RUnlock()
	return v.vc.Ready
}

func (v *Voice) Disconnect(context.Context) error {
	return v.vc.Disconnect()
}

func (v *Voice) Drain() []meeting.SpeakerBuffer {
	return v.cap.drain()
}
