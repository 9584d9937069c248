package discord

import (
	"bytes"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"

	"github.com/haivivi/meetrec/pkg/meeting"
)

func packet(ssrc uint32, seq uint16, payload string) *discordgo.Packet {
	return &discordgo.Packet{
		SSRC:      ssrc,
		Sequence:  seq,
		Timestamp: uint32(seq) * 960,
		Opus:      []byte(payload),
	}
}

func TestCaptureDrain(t *testing.T) {
	c := newCapture()
	c.speaking(11, "alice")

	for i := range 3 {
		if err := c.write(packet(11, uint16(i), "a")); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.write(packet(22, 0, "b")); err != nil {
		t.Fatal(err)
	}
	// Empty payloads (silence frames) are ignored.
	if err := c.write(packet(33, 0, "")); err != nil {
		t.Fatal(err)
	}

	bufs := c.drain()
	if len(bufs) != 2 {
		t.Fatalf("drain returned %d buffers", len(bufs))
	}
	if bufs[0].UserID != "alice" || bufs[1].UserID != "ssrc_22" {
		t.Fatalf("users = %q, %q", bufs[0].UserID, bufs[1].UserID)
	}
	for _, b := range bufs {
		if b.Encoding != meeting.EncodingOGG {
			t.Fatalf("encoding = %q", b.Encoding)
		}
		if !bytes.HasPrefix(b.Data, []byte("OggS")) {
			t.Fatalf("buffer of %s is not an Ogg stream", b.UserID)
		}
	}

	r, header, err := oggreader.NewWith(bytes.NewReader(bufs[0].Data))
	if err != nil {
		t.Fatal(err)
	}
	if header.SampleRate != opusSampleRate || header.Channels != opusChannels {
		t.Fatalf("header = %+v", header)
	}
	pages := 0
	for {
		payload, _, err := r.ParseNextPage()
		if err != nil {
			break
		}
		if string(payload) == "a" {
			pages++
		}
	}
	if pages != 3 {
		t.Fatalf("read %d audio pages, want 3", pages)
	}

	if again := c.drain(); len(again) != 0 {
		t.Fatalf("second drain returned %d buffers", len(again))
	}
}

func TestCaptureSpeakingAfterPackets(t *testing.T) {
	c := newCapture()
	c.write(packet(5, 0, "x"))
	c.speaking(5, "bob")
	c.speaking(6, "")

	bufs := c.drain()
	if len(bufs) != 1 || bufs[0].UserID != "bob" {
		t.Fatalf("drain = %+v", bufs)
	}
}

func TestCaptureMergesStreamsOfOneUser(t *testing.T) {
	c := newCapture()
	c.speaking(1, "carol")
	c.speaking(2, "carol")
	c.write(packet(1, 0, "x"))
	c.write(packet(2, 0, "y"))

	bufs := c.drain()
	if len(bufs) != 1 {
		t.Fatalf("drain returned %d buffers", len(bufs))
	}
	if n := bytes.Count(bufs[0].Data, []byte("OpusHead")); n != 2 {
		t.Fatalf("merged buffer holds %d streams, want 2", n)
	}
}
