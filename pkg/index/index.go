// Package index keeps a local catalog of finished meetings.
//
// Each meeting's metadata record is stored msgpack-encoded under
// "meeting:{name}", with a secondary "channel:{id}:{name}" entry so the
// meetings of one text channel can be listed without a scan. Two
// implementations exist: Badger for on-disk (or in-memory) persistence and
// Memory for tests.
package index

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/meetrec/pkg/artifact"
)

// ErrNotFound is returned by Get for an unknown meeting.
var ErrNotFound = errors.New("index: meeting not found")

// ListOptions filters List.
type ListOptions struct {
	// ChannelID restricts the listing to one text channel.
	ChannelID string
	// Limit caps the number of results when positive.
	Limit int
}

// Index stores meeting metadata keyed by meeting name.
type Index interface {
	Put(ctx context.Context, md artifact.Metadata) error
	Get(ctx context.Context, name string) (*artifact.Metadata, error)
	// List yields meetings in name order, which is chronological.
	List(ctx context.Context, opts ListOptions) iter.Seq2[artifact.Metadata, error]
	Delete(ctx context.Context, name string) error
	Close() error
}

const sep = ":"

func meetingKey(name string) []byte {
	return []byte("meeting" + sep + name)
}

func channelKey(channelID, name string) []byte {
	return []byte("channel" + sep + channelID + sep + name)
}

func channelPrefix(channelID string) []byte {
	return []byte("channel" + sep + channelID + sep)
}

func meetingPrefix() []byte {
	return []byte("meeting" + sep)
}

// nameFromKey returns the meeting name at the end of a primary or
// channel key.
func nameFromKey(k []byte) string {
	s := string(k)
	return s[strings.LastIndex(s, sep)+1:]
}

func encode(md artifact.Metadata) ([]byte, error) {
	return msgpack.Marshal(&md)
}

func decode(b []byte) (artifact.Metadata, error) {
	var md artifact.Metadata
	err := msgpack.Unmarshal(b, &md)
	return md, err
}

func validName(name string) error {
	if name == "" || strings.Contains(name, sep) {
		return errors.New("index: invalid meeting name " + `"` + name + `"`)
	}
	return nil
}
