// Package meeting implements the recording session lifecycle: starting and
// stopping a capture in a room, the finalize pipeline that turns captured
// audio into stored artifacts, and the segmented variant that flushes
// partial audio while the recording runs.
//
// The package talks to the outside world only through interfaces: Gateway
// and Voice for audio capture, Command and Channel for the chat surface,
// transcode.Mixer, Transcriber, TextSummarizer and TeamExtractor for
// processing, and artifact.Store for persistence.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/meetrec/pkg/artifact"
	"github.com/haivivi/meetrec/pkg/audio/pcm"
	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/meeterr"
	"github.com/haivivi/meetrec/pkg/summarize"
)

const (
	// DefaultUploadConcurrency bounds parallel individual-track uploads.
	DefaultUploadConcurrency = 4

	summaryPostLimit = 1800
	previewLimit     = 500
)

// Transcriber turns an encoded audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte) (string, error)
}

// TextSummarizer produces a free-text summary of a transcript.
type TextSummarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// TeamExtractor produces a structured report of a transcript.
type TeamExtractor interface {
	Extract(ctx context.Context, transcript string) (*summarize.Team, error)
}

// Index records finished meetings.
type Index interface {
	Put(ctx context.Context, md artifact.Metadata) error
}

// Config wires a Recorder to its collaborators.
type Config struct {
	Gateway     Gateway
	Mixer       transcode.Mixer
	Transcriber Transcriber
	Store       *artifact.Store

	SummaryMode summarize.Mode
	Summarizer  TextSummarizer
	Extractor   TeamExtractor

	// Index is optional.
	Index Index

	// SegmentInterval enables the segmented variant when positive.
	SegmentInterval time.Duration

	// Bitrate is passed to the mixer when converting tracks to mp3.
	Bitrate string

	UploadConcurrency int

	// RawFormat describes EncodingPCM buffers. Defaults to
	// pcm.L16Stereo48K.
	RawFormat pcm.Format

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Recorder runs recording sessions, at most one per room.
type Recorder struct {
	cfg      Config
	registry *Registry
	names    namer
	logger   *slog.Logger

	// live holds every session from the start of capture until its
	// pipeline finishes, including sessions already removed from registry.
	mu   sync.Mutex
	live map[*Session]struct{}
}

// NewRecorder checks cfg and returns a Recorder.
func NewRecorder(cfg Config) (*Recorder, error) {
	switch {
	case cfg.Gateway == nil:
		return nil, errors.New("meeting: gateway is required")
	case cfg.Mixer == nil:
		return nil, errors.New("meeting: mixer is required")
	case cfg.Transcriber == nil:
		return nil, errors.New("meeting: transcriber is required")
	case cfg.Store == nil:
		return nil, errors.New("meeting: artifact store is required")
	}
	if cfg.SummaryMode == "" {
		cfg.SummaryMode = summarize.ModeText
	}
	if cfg.SummaryMode.WantsText() && cfg.Summarizer == nil {
		return nil, fmt.Errorf("meeting: summary mode %q needs a summarizer", cfg.SummaryMode)
	}
	if cfg.SummaryMode.WantsStructured() && cfg.Extractor == nil {
		return nil, fmt.Errorf("meeting: summary mode %q needs an extractor", cfg.SummaryMode)
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = DefaultUploadConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RawFormat == (pcm.Format{}) {
		cfg.RawFormat = pcm.L16Stereo48K
	}
	if err := cfg.RawFormat.Validate(); err != nil {
		return nil, fmt.Errorf("meeting: raw format: %w", err)
	}
	return &Recorder{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   cfg.Logger,
		live:     make(map[*Session]struct{}),
	}, nil
}

// Registry returns the table of active sessions.
func (r *Recorder) Registry() *Registry { return r.registry }

func (r *Recorder) segmented() bool { return r.cfg.SegmentInterval > 0 }

// Start begins recording the voice channel of the invoking user.
func (r *Recorder) Start(ctx context.Context, cmd Command) error {
	ref, ok := cmd.VoiceChannel()
	if !ok {
		r.respond(ctx, cmd, "You're not in a voice channel right now")
		return &meeterr.ConnectionError{Reason: "no voice channel", Err: meeterr.ErrNoVoiceChannel}
	}
	room := cmd.RoomID()
	s := newSession(uuid.NewString(), room, cmd.TextChannel())
	if err := r.registry.Create(room, s); err != nil {
		r.respond(ctx, cmd, "❌ Already recording in this server")
		return &meeterr.ConnectionError{Reason: "already recording", Err: err}
	}
	log := r.logger.With(slog.String("room", room), slog.String("session", s.ID))

	voice, err := r.cfg.Gateway.Connect(ctx, ref)
	if err != nil {
		r.registry.RemoveIf(room, s)
		r.respond(ctx, cmd, fmt.Sprintf("Failed to start recording: %v", err))
		log.Warn("meeting: connect failed", slog.Any("error", err))
		return &meeterr.ConnectionError{Reason: "connect", Err: err}
	}

	// Background work outlives the command that started it.
	bg := context.WithoutCancel(ctx)
	s.voice = voice
	s.StartTime = r.cfg.Now()
	if r.segmented() {
		s.setName(r.names.next(s.StartTime))
		s.flush = r.startFlush(bg, s)
	}
	s.transition(StateIdle, StateRecording)
	r.track(s)

	if err := voice.StartCapture(func(bufs []SpeakerBuffer) { r.finalize(bg, s, bufs) }); err != nil {
		if s.flush != nil {
			s.flush.stop()
		}
		s.state.Store(int32(StateClosed))
		close(s.done)
		r.untrack(s)
		r.registry.RemoveIf(room, s)
		if derr := voice.Disconnect(bg); derr != nil {
			log.Warn("meeting: disconnect", slog.Any("error", derr))
		}
		r.respond(ctx, cmd, fmt.Sprintf("Failed to start recording: %v", err))
		return &meeterr.ConnectionError{Reason: "start capture", Err: err}
	}

	log.Info("meeting: recording started",
		slog.String("channel", ref.ChannelID),
		slog.String("user", cmd.UserID()),
		slog.String("meeting", s.Name()),
	)
	r.respond(ctx, cmd, "🎙️ The recording has started!")
	return nil
}

// Stop ends the capture in the caller's room. The finalize pipeline runs
// later, when the gateway reports completion.
func (r *Recorder) Stop(ctx context.Context, cmd Command) error {
	s, ok := r.registry.Get(cmd.RoomID())
	if !ok || !s.transition(StateRecording, StateStopping) {
		r.respond(ctx, cmd, "Not recording in this guild.")
		return nil
	}
	r.stop(s)
	d := r.cfg.Now().Sub(s.StartTime)
	r.logger.Info("meeting: recording stopped",
		slog.String("room", s.RoomID),
		slog.String("session", s.ID),
		slog.Duration("duration", d),
	)
	r.respond(ctx, cmd, "⏱️ Meeting stopped. Duration: "+FormatDuration(d))
	return nil
}

// stop ends the capture whether or not the voice link is up. The gateway
// reports completion only after StopCapture.
func (r *Recorder) stop(s *Session) {
	if !s.voice.IsConnected() {
		r.logger.Warn("meeting: voice link down at stop", slog.String("session", s.ID))
	}
	if err := s.voice.StopCapture(); err != nil {
		r.logger.Warn("meeting: stop capture", slog.String("session", s.ID), slog.Any("error", err))
	}
	if s.flush != nil {
		s.flush.cancel()
	}
	r.registry.RemoveIf(s.RoomID, s)
}

func (r *Recorder) track(s *Session) {
	r.mu.Lock()
	r.live[s] = struct{}{}
	r.mu.Unlock()
}

func (r *Recorder) untrack(s *Session) {
	r.mu.Lock()
	delete(r.live, s)
	r.mu.Unlock()
}

// Live returns the sessions that are recording or still processing.
func (r *Recorder) Live() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.live))
	for s := range r.live {
		out = append(out, s)
	}
	return out
}

// Shutdown stops every recording session and waits until it and every
// session already stopped have finished processing, or until ctx is done.
func (r *Recorder) Shutdown(ctx context.Context) error {
	sessions := r.Live()
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		g.Go(func() error {
			if s.transition(StateRecording, StateStopping) {
				r.stop(s)
			}
			select {
			case <-s.Done():
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

// finalize runs the processing pipeline for s. Only the first caller wins;
// later calls return nil.
func (r *Recorder) finalize(ctx context.Context, s *Session, bufs []SpeakerBuffer) error {
	if !s.transition(StateRecording, StateFinalizing) && !s.transition(StateStopping, StateFinalizing) {
		return nil
	}
	defer func() {
		s.state.Store(int32(StateClosed))
		r.untrack(s)
		close(s.done)
	}()
	log := r.logger.With(slog.String("room", s.RoomID), slog.String("session", s.ID))

	r.registry.RemoveIf(s.RoomID, s)
	segments := 0
	if s.flush != nil {
		s.flush.stop()
		bufs = s.flush.finish(ctx, bufs)
		segments = s.flush.n
	}
	if err := s.voice.Disconnect(ctx); err != nil {
		log.Warn("meeting: disconnect", slog.Any("error", err))
	}
	end := r.cfg.Now()
	if s.Name() == "" {
		s.setName(r.names.next(end))
	}
	s.addUsers(bufs)
	bufs = r.wrapRaw(bufs)

	log.Info("meeting: finalizing",
		slog.String("meeting", s.Name()),
		slog.Int("tracks", len(bufs)),
		slog.Int("segments", segments),
	)
	if err := r.process(ctx, s, bufs, end, segments); err != nil {
		r.send(ctx, s.Channel, fmt.Sprintf("⚠️ An error occurred during processing: %v", err))
		log.Error("meeting: processing failed", slog.String("meeting", s.Name()), slog.Any("error", err))
		return err
	}
	log.Info("meeting: processing complete", slog.String("meeting", s.Name()))
	return nil
}

func (r *Recorder) process(ctx context.Context, s *Session, bufs []SpeakerBuffer, end time.Time, segments int) error {
	name := s.Name()
	ch := s.Channel
	users := s.Users()
	dur := end.Sub(s.StartTime)
	store := r.cfg.Store

	r.send(ctx, ch, fmt.Sprintf("🎙️ Finished! Recorded audio for %s. Duration: %s.", Mentions(users), FormatDuration(dur)))

	md := artifact.Metadata{
		MeetingName:     name,
		ChannelID:       ch.ID(),
		ChannelName:     ch.Name(),
		NumUsers:        len(users),
		RecordedUsers:   Mentions(users),
		RecordedUserIDs: users,
		Segments:        segments,
		Mode:            artifact.ModeSingle,
	}
	if r.segmented() {
		md.Mode = artifact.ModeSegmented
	}
	md.SetTimes(s.StartTime, end, FormatDuration)

	uploaded, err := r.uploadIndividuals(ctx, ch, name, bufs)
	if err != nil {
		return err
	}
	md.IndividualUploadsSuccess = uploaded

	var transcript string
	if len(bufs) > 0 {
		r.send(ctx, ch, "🔄 Mixing audio streams...")
		mix, err := r.cfg.Mixer.Mix(ctx, streams(bufs), transcode.MP3)
		if err != nil {
			return err
		}
		md.MixUploadSuccess = store.Put(ctx, ch, artifact.MixPath(name), mix, transcode.MP3.ContentType())

		r.send(ctx, ch, "🎯 Transcribing audio...")
		if transcript, err = r.cfg.Transcriber.Transcribe(ctx, mix); err != nil {
			return err
		}
	}
	if segments > 0 {
		transcript = store.ConcatenateSegments(ctx, ch, name) + transcript
	}

	summary, err := r.summarize(ctx, ch, name, transcript)
	if err != nil {
		return err
	}
	store.PutText(ctx, ch, artifact.TranscriptPath(name), transcript)
	if summary != "" {
		r.send(ctx, ch, "📋 Summary:\n"+Truncate(summary, summaryPostLimit))
	}

	md.TranscriptionLength = utf8.RuneCountInString(transcript)
	md.SummaryLength = utf8.RuneCountInString(summary)
	md.ProcessingCompleted = true
	store.PutJSON(ctx, ch, name, md)
	if r.cfg.Index != nil {
		if err := r.cfg.Index.Put(ctx, md); err != nil {
			r.logger.Warn("meeting: index", slog.String("meeting", name), slog.Any("error", err))
		}
	}

	r.send(ctx, ch, fmt.Sprintf("✅ Processing complete!\n📁 Uploads: %d/%d successful\n📝 Transcription: %d characters\n⏱️ Duration: %s\n```\n%s\n```",
		uploaded, len(bufs), md.TranscriptionLength, FormatDuration(dur), Truncate(transcript, previewLimit)))
	return nil
}

// uploadIndividuals stores one mp3 per speaker and returns how many
// uploads succeeded. A conversion failure aborts the remaining uploads.
func (r *Recorder) uploadIndividuals(ctx context.Context, ch Channel, name string, bufs []SpeakerBuffer) (int, error) {
	var ok atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.UploadConcurrency)
	for _, b := range bufs {
		g.Go(func() error {
			data, err := r.toMP3(gctx, b)
			if err != nil {
				return fmt.Errorf("convert audio of user %s: %w", b.UserID, err)
			}
			if r.cfg.Store.Put(gctx, ch, artifact.IndividualPath(name, b.UserID), data, transcode.MP3.ContentType()) {
				ok.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(ok.Load()), err
}

func (r *Recorder) summarize(ctx context.Context, ch Channel, name, transcript string) (string, error) {
	mode := r.cfg.SummaryMode
	if mode == summarize.ModeNone || strings.TrimSpace(transcript) == "" {
		return "", nil
	}
	var parts []string
	if mode.WantsText() {
		text, err := r.cfg.Summarizer.Summarize(ctx, transcript)
		if err != nil {
			return "", err
		}
		r.cfg.Store.PutText(ctx, ch, artifact.SummaryTextPath(name), text)
		parts = append(parts, text)
	}
	if mode.WantsStructured() {
		team, err := r.cfg.Extractor.Extract(ctx, transcript)
		if err != nil {
			return "", err
		}
		r.cfg.Store.PutObject(ctx, ch, artifact.SummaryJSONPath(name), team)
		parts = append(parts, team.Text())
	}
	return strings.Join(parts, "\n\n"), nil
}

func (r *Recorder) toMP3(ctx context.Context, b SpeakerBuffer) ([]byte, error) {
	if b.Encoding == EncodingMP3 {
		return b.Data, nil
	}
	return r.cfg.Mixer.Convert(ctx, b.Data, transcode.ConvertOptions{Format: transcode.MP3, Bitrate: r.cfg.Bitrate})
}

// wrapRaw gives EncodingPCM buffers a WAV header so every mixer can read
// them without being told the sample format.
func (r *Recorder) wrapRaw(bufs []SpeakerBuffer) []SpeakerBuffer {
	out := make([]SpeakerBuffer, len(bufs))
	for i, b := range bufs {
		if b.Encoding == EncodingPCM {
			b.Data = pcm.EncodeWAV(r.cfg.RawFormat, b.Data)
			b.Encoding = EncodingWAV
		}
		out[i] = b
	}
	return out
}

func streams(bufs []SpeakerBuffer) [][]byte {
	out := make([][]byte, len(bufs))
	for i, b := range bufs {
		out[i] = b.Data
	}
	return out
}

func (r *Recorder) send(ctx context.Context, ch Channel, text string) {
	if err := ch.Send(ctx, text); err != nil {
		r.logger.Warn("meeting: send message", slog.String("channel", ch.ID()), slog.Any("error", err))
	}
}

func (r *Recorder) respond(ctx context.Context, cmd Command, text string) {
	if err := cmd.Respond(ctx, text); err != nil {
		r.logger.Warn("meeting: respond", slog.String("room", cmd.RoomID()), slog.Any("error", err))
	}
}
