package meeting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haivivi/meetrec/pkg/artifact"
	"github.com/haivivi/meetrec/pkg/audio/transcode"
	"github.com/haivivi/meetrec/pkg/storage"
	"github.com/haivivi/meetrec/pkg/summarize"
)

// ---------------------------------------------------------------------------
// chat surface
// ---------------------------------------------------------------------------

type fakeChannel struct {
	mu   sync.Mutex
	msgs []string
}

func (c *fakeChannel) ID() string   { return "text-1" }
func (c *fakeChannel) Name() string { return "general" }

func (c *fakeChannel) Send(_ context.Context, text string) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func (c *fakeChannel) contains(prefix string) bool {
	for _, m := range c.messages() {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

type fakeCommand struct {
	room    string
	noVoice bool
	ch      *fakeChannel

	mu        sync.Mutex
	responses []string
}

func newCommand(room string) *fakeCommand {
	return &fakeCommand{room: room, ch: &fakeChannel{}}
}

func (c *fakeCommand) UserID() string { return "100" }
func (c *fakeCommand) RoomID() string { return c.room }

func (c *fakeCommand) VoiceChannel() (ChannelRef, bool) {
	if c.noVoice {
		return ChannelRef{}, false
	}
	return ChannelRef{RoomID: c.room, ChannelID: "voice-1"}, true
}

func (c *fakeCommand) TextChannel() Channel { return c.ch }

func (c *fakeCommand) Respond(_ context.Context, text string) error {
	c.mu.Lock()
	c.responses = append(c.responses, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeCommand) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return ""
	}
	return c.responses[len(c.responses)-1]
}

// ---------------------------------------------------------------------------
// voice gateway
// ---------------------------------------------------------------------------

type fakeVoice struct {
	mu          sync.Mutex
	connected   bool
	onComplete  func([]SpeakerBuffer)
	drains      [][]SpeakerBuffer
	drained     int
	final       []SpeakerBuffer
	stops       int
	disconnects int
	startErr    error

	// autoComplete delivers final on its own goroutine after StopCapture.
	autoComplete bool
}

func (v *fakeVoice) StartCapture(onComplete func([]SpeakerBuffer)) error {
	if v.startErr != nil {
		return v.startErr
	}
	v.mu.Lock()
	v.onComplete = onComplete
	v.mu.Unlock()
	return nil
}

func (v *fakeVoice) StopCapture() error {
	v.mu.Lock()
	v.stops++
	auto := v.autoComplete
	v.mu.Unlock()
	if auto {
		go v.complete()
	}
	return nil
}

func (v *fakeVoice) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

func (v *fakeVoice) Disconnect(context.Context) error {
	v.mu.Lock()
	v.connected = false
	v.disconnects++
	v.mu.Unlock()
	return nil
}

func (v *fakeVoice) Drain() []SpeakerBuffer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.drains) == 0 {
		return nil
	}
	b := v.drains[0]
	v.drains = v.drains[1:]
	v.drained++
	return b
}

// complete invokes the completion callback with the final buffers.
func (v *fakeVoice) complete() {
	v.mu.Lock()
	cb, final := v.onComplete, v.final
	v.mu.Unlock()
	cb(final)
}

func (v *fakeVoice) stopCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stops
}

type fakeGateway struct {
	mu       sync.Mutex
	voices   map[string]*fakeVoice
	err      error
	connects int
}

func (g *fakeGateway) Connect(_ context.Context, ref ChannelRef) (Voice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects++
	if g.err != nil {
		return nil, g.err
	}
	if g.voices == nil {
		g.voices = map[string]*fakeVoice{}
	}
	v, ok := g.voices[ref.RoomID]
	if !ok {
		v = &fakeVoice{}
		g.voices[ref.RoomID] = v
	}
	v.mu.Lock()
	v.connected = true
	v.mu.Unlock()
	return v, nil
}

func (g *fakeGateway) voice(room string) *fakeVoice {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.voices == nil {
		g.voices = map[string]*fakeVoice{}
	}
	v, ok := g.voices[room]
	if !ok {
		v = &fakeVoice{}
		g.voices[room] = v
	}
	return v
}

// ---------------------------------------------------------------------------
// processing
// ---------------------------------------------------------------------------

// fakeMixer renders its operations as text so tests can read them back.
type fakeMixer struct {
	mu       sync.Mutex
	mixes    int
	converts int
	mixErr   error
	onMix    func(streams [][]byte)
}

func (m *fakeMixer) Mix(_ context.Context, streams [][]byte, format transcode.Format) ([]byte, error) {
	m.mu.Lock()
	m.mixes++
	onMix := m.onMix
	m.mu.Unlock()
	if onMix != nil {
		onMix(streams)
	}
	if m.mixErr != nil {
		return nil, m.mixErr
	}
	if len(streams) == 0 {
		return []byte{}, nil
	}
	return []byte(fmt.Sprintf("MIX[%s](%s)", format, bytes.Join(streams, []byte("+")))), nil
}

func (m *fakeMixer) Convert(_ context.Context, data []byte, opts transcode.ConvertOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.converts++
	m.mu.Unlock()
	return []byte(fmt.Sprintf("%s(%s)", strings.ToUpper(string(opts.Format)), data)), nil
}

func (m *fakeMixer) ExtractSegment(_ context.Context, data []byte, start, duration time.Duration) ([]byte, error) {
	return data, nil
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	err   error

	// When gate is set, Transcribe signals entered and waits for gate.
	gate    chan struct{}
	entered chan struct{}
}

func (t *fakeTranscriber) Transcribe(_ context.Context, data []byte) (string, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if t.gate != nil {
		t.entered <- struct{}{}
		<-t.gate
	}
	if t.err != nil {
		return "", t.err
	}
	return "heard " + string(data), nil
}

type fakeSummarizer struct{ err error }

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("summary of %d chars", len(transcript)), nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(context.Context, string) (*summarize.Team, error) {
	return &summarize.Team{TeamName: "Core", Events: []summarize.TeamEvent{{Progress: "p", Blocker: "b", NextStep: "n"}}}, nil
}

type fakeIndex struct {
	mu  sync.Mutex
	mds []artifact.Metadata
}

func (i *fakeIndex) Put(_ context.Context, md artifact.Metadata) error {
	i.mu.Lock()
	i.mds = append(i.mds, md)
	i.mu.Unlock()
	return nil
}

// rejectStore fails every Put whose path contains one of the fragments
// while reject is set.
type rejectStore struct {
	*storage.Memory

	mu        sync.Mutex
	fragments []string
	reject    bool
	attempts  map[string]int
}

func newRejectStore(fragments ...string) *rejectStore {
	return &rejectStore{Memory: storage.NewMemory(), fragments: fragments, reject: true, attempts: map[string]int{}}
}

func (s *rejectStore) Put(ctx context.Context, p string, data []byte, ct string) error {
	s.mu.Lock()
	s.attempts[p]++
	reject := s.reject
	s.mu.Unlock()
	if reject {
		for _, f := range s.fragments {
			if strings.Contains(p, f) {
				return errors.New("rejected")
			}
		}
	}
	return s.Memory.Put(ctx, p, data, ct)
}

func (s *rejectStore) setReject(v bool) {
	s.mu.Lock()
	s.reject = v
	s.mu.Unlock()
}

func (s *rejectStore) attemptsFor(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[p]
}

// ---------------------------------------------------------------------------
// harness
// ---------------------------------------------------------------------------

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	rec     *Recorder
	gw      *fakeGateway
	mixer   *fakeMixer
	asr     *fakeTranscriber
	blobs   storage.BlobStore
	mem     *storage.Memory
	index   *fakeIndex
	clock   *clock
	summary *fakeSummarizer
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		gw:      &fakeGateway{},
		mixer:   &fakeMixer{},
		asr:     &fakeTranscriber{},
		mem:     storage.NewMemory(),
		index:   &fakeIndex{},
		clock:   &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		summary: &fakeSummarizer{},
	}
	h.blobs = h.mem
	cfg := Config{
		Gateway:     h.gw,
		Mixer:       h.mixer,
		Transcriber: h.asr,
		SummaryMode: summarize.ModeText,
		Summarizer:  h.summary,
		Extractor:   fakeExtractor{},
		Index:       h.index,
		Bitrate:     "128k",
		Now:         h.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if cfg.Store == nil {
		cfg.Store = artifact.New(h.blobs, nil)
	}
	rec, err := NewRecorder(cfg)
	if err != nil {
		t.Fatal(err)
	}
	h.rec = rec
	return h
}

// withBlobs makes the harness store artifacts in b.
func withBlobs(b storage.BlobStore) func(*Config) {
	return func(c *Config) { c.Store = artifact.New(b, nil) }
}

func speakers(data ...string) []SpeakerBuffer {
	out := make([]SpeakerBuffer, len(data))
	for i, d := range data {
		out[i] = SpeakerBuffer{UserID: fmt.Sprint(i + 1), Data: []byte(d), Encoding: EncodingOGG}
	}
	return out
}
