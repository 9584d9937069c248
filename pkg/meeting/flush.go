package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/meetrec/pkg/artifact"
	"github.com/haivivi/meetrec/pkg/audio/transcode"
)

var errSegmentUpload = errors.New("segment upload failed")

// flusher periodically drains the capture of a session into numbered
// segments. A segment that fails at any step stays pending and is retried
// with the same number on the next tick before anything new is drained.
//
// n and pending are owned by the loop goroutine until done is closed.
type flusher struct {
	r *Recorder
	s *Session

	cancel context.CancelFunc
	done   chan struct{}

	n       int
	pending []SpeakerBuffer
}

func (r *Recorder) startFlush(ctx context.Context, s *Session) *flusher {
	ctx, cancel := context.WithCancel(ctx)
	f := &flusher{
		r:      r,
		s:      s,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.loop(ctx, r.cfg.SegmentInterval)
	return f
}

func (f *flusher) loop(ctx context.Context, interval time.Duration) {
	defer close(f.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.tick(ctx)
		}
	}
}

func (f *flusher) tick(ctx context.Context) {
	if f.s.State() != StateRecording {
		return
	}
	if f.pending == nil {
		bufs := f.s.voice.Drain()
		if len(bufs) == 0 {
			return
		}
		f.pending = bufs
	}
	if err := f.r.flushSegment(ctx, f.s, f.n, f.pending); err != nil {
		if ctx.Err() != nil {
			return
		}
		f.r.logger.Warn("meeting: segment failed, will retry",
			slog.String("session", f.s.ID),
			slog.Int("segment", f.n),
			slog.Any("error", err),
		)
		if !errors.Is(err, errSegmentUpload) {
			f.r.send(ctx, f.s.Channel, fmt.Sprintf("⚠️ Failed to process segment %d: %v", f.n, err))
		}
		return
	}
	f.pending = nil
	f.n++
}

// stop cancels the loop and waits for it to exit.
func (f *flusher) stop() {
	f.cancel()
	<-f.done
}

// finish makes a last attempt at a pending segment. If it fails the pending
// audio is merged into the final buffers so nothing is lost. It must only be
// called after stop.
func (f *flusher) finish(ctx context.Context, final []SpeakerBuffer) []SpeakerBuffer {
	if f.pending == nil {
		return final
	}
	pending := f.pending
	f.pending = nil
	err := f.r.flushSegment(ctx, f.s, f.n, pending)
	if err == nil {
		f.n++
		return final
	}
	f.r.logger.Warn("meeting: pending segment merged into final audio",
		slog.String("session", f.s.ID),
		slog.Int("segment", f.n),
		slog.Any("error", err),
	)
	return mergeBuffers(pending, final)
}

// flushSegment uploads one segment: every speaker track, the mix and its
// transcript. The segment counts only when all uploads succeed.
func (r *Recorder) flushSegment(ctx context.Context, s *Session, n int, bufs []SpeakerBuffer) error {
	name := s.Name()
	ch := s.Channel
	store := r.cfg.Store
	bufs = r.wrapRaw(bufs)
	for _, b := range bufs {
		data, err := r.toMP3(ctx, b)
		if err != nil {
			return err
		}
		if !store.Put(ctx, ch, artifact.SegmentUserPath(name, n, b.UserID), data, transcode.MP3.ContentType()) {
			return errSegmentUpload
		}
	}
	mix, err := r.cfg.Mixer.Mix(ctx, streams(bufs), transcode.MP3)
	if err != nil {
		return err
	}
	if !store.Put(ctx, ch, artifact.SegmentMixPath(name, n), mix, transcode.MP3.ContentType()) {
		return errSegmentUpload
	}
	text, err := r.cfg.Transcriber.Transcribe(ctx, mix)
	if err != nil {
		return err
	}
	if !store.PutText(ctx, ch, artifact.SegmentTextPath(name, n), text) {
		return errSegmentUpload
	}
	s.addUsers(bufs)
	r.logger.Info("meeting: segment flushed",
		slog.String("session", s.ID),
		slog.String("meeting", name),
		slog.Int("segment", n),
		slog.Int("tracks", len(bufs)),
	)
	return nil
}

// mergeBuffers prepends each user's earlier audio to their later audio.
func mergeBuffers(earlier, later []SpeakerBuffer) []SpeakerBuffer {
	out := make([]SpeakerBuffer, 0, len(earlier)+len(later))
	idx := make(map[string]int, len(earlier))
	for _, b := range earlier {
		idx[b.UserID] = len(out)
		out = append(out, SpeakerBuffer{UserID: b.UserID, Data: append([]byte(nil), b.Data...), Encoding: b.Encoding})
	}
	for _, b := range later {
		if i, ok := idx[b.UserID]; ok {
			out[i].Data = append(out[i].Data, b.Data...)
			continue
		}
		out = append(out, b)
	}
	return out
}
