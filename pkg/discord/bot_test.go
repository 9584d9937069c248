package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/haivivi/meetrec/pkg/meeting"
)

type apiCall struct {
	method string
	path   string
	body   map[string]any
}

// restRecorder answers every Discord REST call with an empty message and
// records it.
type restRecorder struct {
	mu    sync.Mutex
	calls []apiCall
}

func (r *restRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	c := apiCall{method: req.Method, path: req.URL.Path}
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if len(b) > 0 {
			if err := json.Unmarshal(b, &c.body); err != nil {
				return nil, err
			}
		}
	}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"id":"m1","channel_id":"c1"}`)),
		Request:    req,
	}, nil
}

func (r *restRecorder) recorded() []apiCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]apiCall(nil), r.calls...)
}

// testSession returns a session whose state knows guild g1 with text
// channel c1, user u1 in voice channel v1 and user u3 with no channel.
func testSession(t *testing.T) (*discordgo.Session, *restRecorder) {
	t.Helper()
	s, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatal(err)
	}
	rest := &restRecorder{}
	s.Client = &http.Client{Transport: rest}

	guild := &discordgo.Guild{
		ID:   "g1",
		Name: "HQ",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "u1", ChannelID: "v1"},
			{GuildID: "g1", UserID: "u3"},
		},
	}
	if err := s.State.GuildAdd(guild); err != nil {
		t.Fatal(err)
	}
	if err := s.State.ChannelAdd(&discordgo.Channel{ID: "c1", GuildID: "g1", Name: "standup", Type: discordgo.ChannelTypeGuildText}); err != nil {
		t.Fatal(err)
	}
	return s, rest
}

func interaction(user string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i1",
		AppID:     "app",
		Token:     "tok",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: user}},
		Data:      discordgo.ApplicationCommandInteractionData{Name: "start"},
	}
}

func TestCommandVoiceChannel(t *testing.T) {
	s, _ := testSession(t)

	tests := []struct {
		name   string
		user   string
		want   meeting.ChannelRef
		wantOK bool
	}{
		{"in voice", "u1", meeting.ChannelRef{RoomID: "g1", ChannelID: "v1"}, true},
		{"no voice state", "u2", meeting.ChannelRef{}, false},
		{"left voice", "u3", meeting.ChannelRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCommand(s, interaction(tt.user))
			got, ok := cmd.VoiceChannel()
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("VoiceChannel() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
			if cmd.UserID() != tt.user || cmd.RoomID() != "g1" {
				t.Fatalf("user/room = %q/%q", cmd.UserID(), cmd.RoomID())
			}
		})
	}
}

func TestCommandRespond(t *testing.T) {
	tests := []struct {
		name     string
		deferred bool
		want     []apiCall
	}{
		{
			name: "immediate",
			want: []apiCall{
				{method: "POST", path: "/interactions/i1/tok/callback", body: map[string]any{"type": 4.0, "content": "first"}},
				{method: "POST", path: "/webhooks/app/tok", body: map[string]any{"content": "second"}},
			},
		},
		{
			name:     "deferred",
			deferred: true,
			want: []apiCall{
				{method: "POST", path: "/interactions/i1/tok/callback", body: map[string]any{"type": 5.0}},
				{method: "PATCH", path: "/webhooks/app/tok/messages/@original", body: map[string]any{"content": "first"}},
				{method: "POST", path: "/webhooks/app/tok", body: map[string]any{"content": "second"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rest := testSession(t)
			ctx := context.Background()
			cmd := newCommand(s, interaction("u1"))
			if tt.deferred {
				if err := cmd.Defer(ctx); err != nil {
					t.Fatal(err)
				}
				// A second Defer is a no-op.
				if err := cmd.Defer(ctx); err != nil {
					t.Fatal(err)
				}
			}
			for _, text := range []string{"first", "second"} {
				if err := cmd.Respond(ctx, text); err != nil {
					t.Fatal(err)
				}
			}
			assertCalls(t, rest.recorded(), tt.want)
		})
	}
}

// assertCalls compares method, path suffix and the listed body fields.
// Fields missing at the top level are looked up in the "data" object.
func assertCalls(t *testing.T, got, want []apiCall) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d calls %+v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.method != w.method || !strings.HasSuffix(g.path, w.path) {
			t.Fatalf("call %d = %s %s, want %s ...%s", i, g.method, g.path, w.method, w.path)
		}
		for k, v := range w.body {
			gv, ok := g.body[k]
			if data, isMap := g.body["data"].(map[string]any); !ok && isMap {
				gv = data[k]
			}
			if gv != v {
				t.Fatalf("call %d %s = %v, want %v (body %v)", i, k, gv, v, g.body)
			}
		}
	}
}

func TestTextChannel(t *testing.T) {
	s, rest := testSession(t)
	ctx := context.Background()

	if got := (&TextChannel{s: s, id: "c1"}).Name(); got != "standup" {
		t.Fatalf("Name() = %q", got)
	}
	if got := (&TextChannel{s: s, id: "c9"}).Name(); got != "c9" {
		t.Fatalf("Name() of uncached channel = %q", got)
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "hello", "hello"},
		{"at limit", strings.Repeat("é", discordMessageLimit), strings.Repeat("é", discordMessageLimit)},
		{"over limit", strings.Repeat("é", 2500), strings.Repeat("é", discordMessageLimit-3) + "..."},
	}
	ch := &TextChannel{s: s, id: "c1"}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ch.Send(ctx, tt.text); err != nil {
				t.Fatal(err)
			}
			calls := rest.recorded()
			if len(calls) != i+1 {
				t.Fatalf("got %d calls", len(calls))
			}
			c := calls[i]
			if c.method != "POST" || !strings.HasSuffix(c.path, "/channels/c1/messages") {
				t.Fatalf("call = %s %s", c.method, c.path)
			}
			got, _ := c.body["content"].(string)
			if got != tt.want {
				t.Fatalf("content has %d runes, want %d", utf8.RuneCountInString(got), utf8.RuneCountInString(tt.want))
			}
		})
	}
}

type stubRecorder struct {
	rest   *restRecorder
	before int
	calls  []string
}

func (r *stubRecorder) Start(ctx context.Context, cmd meeting.Command) error {
	r.before = len(r.rest.recorded())
	r.calls = append(r.calls, "start")
	return cmd.Respond(ctx, "started")
}

func (r *stubRecorder) Stop(ctx context.Context, cmd meeting.Command) error {
	r.calls = append(r.calls, "stop")
	return cmd.Respond(ctx, "stopped")
}

func TestInteractionDeferredBeforeRecorder(t *testing.T) {
	s, rest := testSession(t)
	rec := &stubRecorder{rest: rest}
	b := NewBot(s, rec, BotConfig{})

	b.onInteraction(s, &discordgo.InteractionCreate{Interaction: interaction("u1")})

	if len(rec.calls) != 1 || rec.calls[0] != "start" {
		t.Fatalf("recorder calls = %q", rec.calls)
	}
	if rec.before != 1 {
		t.Fatalf("%d calls before Start, want the deferred ack only", rec.before)
	}
	assertCalls(t, rest.recorded(), []apiCall{
		{method: "POST", path: "/interactions/i1/tok/callback", body: map[string]any{"type": 5.0}},
		{method: "PATCH", path: "/webhooks/app/tok/messages/@original", body: map[string]any{"content": "started"}},
	})
}

func TestInteractionIgnored(t *testing.T) {
	s, rest := testSession(t)
	rec := &stubRecorder{rest: rest}
	b := NewBot(s, rec, BotConfig{})

	dm := interaction("u1")
	dm.GuildID = ""
	b.onInteraction(s, &discordgo.InteractionCreate{Interaction: dm})

	other := interaction("u1")
	other.Data = discordgo.ApplicationCommandInteractionData{Name: "help"}
	b.onInteraction(s, &discordgo.InteractionCreate{Interaction: other})

	if len(rec.calls) != 0 || len(rest.recorded()) != 0 {
		t.Fatalf("recorder calls %q, rest calls %d", rec.calls, len(rest.recorded()))
	}
}
