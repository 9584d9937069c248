package discord

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"

	"github.com/haivivi/meetrec/pkg/meeting"
)

const (
	opusSampleRate = 48000
	opusChannels   = 2
)

// capture accumulates received Opus packets into one Ogg stream per SSRC.
// Streams are resolved to user IDs through speaking updates.
type capture struct {
	mu      sync.Mutex
	streams map[uint32]*oggStream
	order   []uint32
	users   map[uint32]string
}

type oggStream struct {
	buf     *bytes.Buffer
	w       *oggwriter.OggWriter
	packets int
}

func newCapture() *capture {
	return &capture{
		streams: make(map[uint32]*oggStream),
		users:   make(map[uint32]string),
	}
}

// speaking records the user behind ssrc.
func (c *capture) speaking(ssrc uint32, userID string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	c.users[ssrc] = userID
	c.mu.Unlock()
}

func (c *capture) write(p *discordgo.Packet) error {
	if len(p.Opus) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.streams[p.SSRC]
	if !ok {
		buf := &bytes.Buffer{}
		w, err := oggwriter.NewWith(buf, opusSampleRate, opusChannels)
		if err != nil {
			return fmt.Errorf("discord: ogg writer: %w", err)
		}
		st = &oggStream{buf: buf, w: w}
		c.streams[p.SSRC] = st
		c.order = append(c.order, p.SSRC)
	}
	err := st.w.WriteRTP(&rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SequenceNumber: p.Sequence,
			Timestamp:      p.Timestamp,
			SSRC:           p.SSRC,
		},
		Payload: p.Opus,
	})
	if err != nil {
		return fmt.Errorf("discord: write opus packet: %w", err)
	}
	st.packets++
	return nil
}

// drain returns one buffer per user and starts fresh streams. Streams of
// the same user (after a reconnect) are concatenated.
func (c *capture) drain() []meeting.SpeakerBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []meeting.SpeakerBuffer
	idx := map[string]int{}
	for _, ssrc := range c.order {
		st := c.streams[ssrc]
		st.w.Close()
		if st.packets == 0 {
			continue
		}
		uid, ok := c.users[ssrc]
		if !ok {
			uid = fmt.Sprintf("ssrc_%d", ssrc)
		}
		if i, ok := idx[uid]; ok {
			out[i].Data = append(out[i].Data, st.buf.Bytes()...)
			continue
		}
		idx[uid] = len(out)
		out = append(out, meeting.SpeakerBuffer{
			UserID:   uid,
			Data:     st.buf.Bytes(),
			Encoding: meeting.EncodingOGG,
		})
	}
	c.streams = make(map[uint32]*oggStream)
	c.order = nil
	return out
}
