//go:build !whispercpp

package commands

import (
	"context"

	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/transcribe"
)

type whisperEngine struct{}

const whisperBuiltin = false

func newWhisperEngine(string, transcode.Mixer) (*whisperEngine, error) {
	return nil, errNoWhisperBuild
}

func (*whisperEngine) Name() string { return "whisper.cpp" }

func (*whisperEngine) Close() error { return nil }

func (*whisperEngine) Transcribe(context.Context, string, transcribe.Options) ([]transcribe.Segment, error) {
	return nil, errNoWhisperBuild
}
