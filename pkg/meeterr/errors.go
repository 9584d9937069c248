// Package meeterr defines the error taxonomy shared by the recorder and its
// collaborators.
//
// Component packages (transcode, transcribe, summarize, storage) return
// these types; the meeting orchestrator is the single place that inspects
// them with errors.As and decides whether to report and continue or abort.
package meeterr

import (
	"errors"
	"fmt"
)

// ErrAlreadyActive is returned when a session is started for a room that
// already has one.
var ErrAlreadyActive = errors.New("meeting: already recording in this room")

// ErrNoVoiceChannel is the reason carried by a ConnectionError when the
// invoking user is not in a voice channel.
var ErrNoVoiceChannel = errors.New("meeting: user is not in a voice channel")

// ConnectionError reports a failure to establish a recording session.
// No session is registered when it is returned.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return "connection: " + e.Reason
	}
	return fmt.Sprintf("connection: %s: %v", e.Reason, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExternalToolError wraps a failure of an external tool: the ffmpeg process,
// an ASR engine or a text-generation model. Stderr holds the diagnostic
// text reported by the tool, if any.
type ExternalToolError struct {
	Tool   string
	Op     string
	Stderr string
	Err    error
}

func (e *ExternalToolError) Error() string {
	msg := e.Tool
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s error: %s", msg, e.Stderr)
	}
	return fmt.Sprintf("%s error: %v", msg, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// StorageError wraps a failed blob store operation on a single path.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Tool wraps err as an ExternalToolError unless it already is one.
func Tool(tool, op string, err error) error {
	if err == nil {
		return nil
	}
	var te *ExternalToolError
	if errors.As(err, &te) {
		return err
	}
	return &ExternalToolError{Tool: tool, Op: op, Err: err}
}
