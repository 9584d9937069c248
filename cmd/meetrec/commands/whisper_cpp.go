//go:build whispercpp

package commands

import (
	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/transcribe"
)

const whisperBuiltin = true

func newWhisperEngine(modelPath string, decoder transcode.Mixer) (*transcribe.WhisperCpp, error) {
	return transcribe.NewWhisperCpp(modelPath, decoder)
}
