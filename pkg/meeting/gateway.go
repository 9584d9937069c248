package meeting

import (
	"context"
)

// Encoding tags the container of a SpeakerBuffer.
type Encoding string

const (
	EncodingMP3 Encoding = "mp3"
	EncodingOGG Encoding = "ogg"
	EncodingWAV Encoding = "wav"
	EncodingPCM Encoding = "pcm"
)

// SpeakerBuffer is the audio captured for one user since the last drain.
type SpeakerBuffer struct {
	UserID   string
	Data     []byte
	Encoding Encoding
}

// ChannelRef identifies a voice channel inside a room.
type ChannelRef struct {
	RoomID    string
	ChannelID string
}

// Gateway opens voice connections.
type Gateway interface {
	Connect(ctx context.Context, ch ChannelRef) (Voice, error)
}

// Voice is a connected voice channel that captures per-user audio.
//
// After StopCapture the gateway calls onComplete exactly once, on its own
// goroutine, with the buffers captured since the last Drain.
type Voice interface {
	StartCapture(onComplete func([]SpeakerBuffer)) error
	StopCapture() error
	IsConnected() bool
	Disconnect(ctx context.Context) error

	// Drain returns the buffers captured so far and resets them without
	// stopping the capture.
	Drain() []SpeakerBuffer
}

// Channel is a text channel that receives progress messages.
type Channel interface {
	ID() string
	Name() string
	Send(ctx context.Context, text string) error
}

// Command is an invocation of the start or stop command.
type Command interface {
	UserID() string
	RoomID() string
	// VoiceChannel returns the voice channel the invoking user is in.
	VoiceChannel() (ChannelRef, bool)
	TextChannel() Channel
	Respond(ctx context.Context, text string) error
}
