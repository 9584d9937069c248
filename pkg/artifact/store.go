// Package artifact stores the outputs of a meeting under a meeting-scoped
// prefix in a blob store.
//
// Every write reports success as a bool. Failures are logged and sent to a
// Notifier (the originating text channel) so a single failed upload never
// aborts the rest of the pipeline.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/haivivi/meetrec/pkg/storage"
)

// NoSegmentsText is returned by ConcatenateSegments for a meeting without
// text segments.
const NoSegmentsText = "⚠️ No transcript segments found for this meeting."

// Notifier receives human-readable failure messages.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Store writes meeting artifacts to a BlobStore.
type Store struct {
	blobs  storage.BlobStore
	logger *slog.Logger
}

// New returns a Store on blobs. A nil logger uses slog.Default.
func New(blobs storage.BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, logger: logger}
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() storage.BlobStore { return s.blobs }

// Put writes data at p, replacing any previous blob.
func (s *Store) Put(ctx context.Context, ch Notifier, p string, data []byte, contentType string) bool {
	if err := s.blobs.Put(ctx, p, data, contentType); err != nil {
		kind := "audio"
		if strings.HasPrefix(contentType, "text/") {
			kind = "text"
		}
		s.fail(ctx, ch, fmt.Sprintf("⚠️ Failed to upload %s file: %v", kind, err), err, p)
		return false
	}
	s.logger.Debug("artifact: uploaded", slog.String("path", p), slog.Int("bytes", len(data)))
	return true
}

// PutText writes text as text/plain.
func (s *Store) PutText(ctx context.Context, ch Notifier, p, text string) bool {
	return s.Put(ctx, ch, p, []byte(text), "text/plain; charset=utf-8")
}

// PutJSON writes record as indented JSON at MetadataPath(meeting).
func (s *Store) PutJSON(ctx context.Context, ch Notifier, meeting string, record any) bool {
	p := MetadataPath(meeting)
	b, err := json.MarshalIndent(record, "", "  ")
	if err == nil {
		err = s.blobs.Put(ctx, p, b, "application/json")
	}
	if err != nil {
		s.fail(ctx, ch, fmt.Sprintf("⚠️ Failed to upload metadata: %v", err), err, p)
		return false
	}
	return true
}

// PutObject writes v as indented JSON at p.
func (s *Store) PutObject(ctx context.Context, ch Notifier, p string, v any) bool {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.fail(ctx, ch, fmt.Sprintf("⚠️ Failed to upload text file: %v", err), err, p)
		return false
	}
	return s.Put(ctx, ch, p, b, "application/json")
}

// GetMetadata reads the metadata record of meeting.
func (s *Store) GetMetadata(ctx context.Context, meeting string) (*Metadata, error) {
	b, err := s.blobs.Get(ctx, MetadataPath(meeting))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("artifact: decode metadata %s: %w", meeting, err)
	}
	return &m, nil
}

// ListTextSegments returns the paths of meeting's text segments ordered by
// segment number. Names without a numeric stem sort last, lexically.
func (s *Store) ListTextSegments(ctx context.Context, meeting string) ([]string, error) {
	dir := TextSegmentsDir(meeting)
	objs, err := s.blobs.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name
	}
	SortSegments(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = path.Join(dir, n)
	}
	return paths, nil
}

// ConcatenateSegments downloads every text segment in order and joins them
// with newlines. It never fails: a missing transcript yields NoSegmentsText
// and an error yields a message that is also sent to ch.
func (s *Store) ConcatenateSegments(ctx context.Context, ch Notifier, meeting string) string {
	text, err := s.concatenate(ctx, meeting)
	if err != nil {
		msg := fmt.Sprintf("⚠️ Failed to retrieve transcript: %v", err)
		s.fail(ctx, ch, msg, err, TextSegmentsDir(meeting))
		return msg
	}
	return text
}

func (s *Store) concatenate(ctx context.Context, meeting string) (string, error) {
	paths, err := s.ListTextSegments(ctx, meeting)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return NoSegmentsText, nil
	}
	var sb strings.Builder
	for _, p := range paths {
		b, err := s.blobs.Get(ctx, p)
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.TrimSpace(string(b)))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (s *Store) fail(ctx context.Context, ch Notifier, msg string, err error, p string) {
	s.logger.Error("artifact: "+msg, slog.String("path", p), slog.Any("error", err))
	if ch == nil {
		return
	}
	if serr := ch.Send(ctx, msg); serr != nil && !errors.Is(serr, context.Canceled) {
		s.logger.Warn("artifact: notify channel", slog.Any("error", serr))
	}
}

// SortSegments orders segment file names by the integer before the first
// dot.
func SortSegments(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, aok := segmentIndex(names[i])
		b, bok := segmentIndex(names[j])
		switch {
		case aok && bok:
			if a != b {
				return a < b
			}
			return names[i] < names[j]
		case aok != bok:
			return aok
		}
		return names[i] < names[j]
	})
}

func segmentIndex(name string) (int, bool) {
	stem, _, _ := strings.Cut(name, ".")
	n, err := strconv.Atoi(stem)
	return n, err == nil
}
