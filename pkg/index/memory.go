package index

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/haivivi/meetrec/pkg/artifact"
)

// Memory is an in-memory Index for tests. Records are stored encoded so
// the codec is exercised the same way as with Badger.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ Index = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, md artifact.Metadata) error {
	if err := validName(md.MeetingName); err != nil {
		return err
	}
	b, err := encode(md)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[md.MeetingName] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, name string) (*artifact.Metadata, error) {
	m.mu.RLock()
	b, ok := m.records[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	md, err := decode(b)
	if err != nil {
		return nil, err
	}
	return &md, nil
}

func (m *Memory) List(_ context.Context, opts ListOptions) iter.Seq2[artifact.Metadata, error] {
	m.mu.RLock()
	var mds []artifact.Metadata
	var errs []error
	for _, b := range m.records {
		md, err := decode(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if opts.ChannelID == "" || md.ChannelID == opts.ChannelID {
			mds = append(mds, md)
		}
	}
	m.mu.RUnlock()
	slices.SortFunc(mds, func(a, b artifact.Metadata) int {
		switch {
		case a.MeetingName < b.MeetingName:
			return -1
		case a.MeetingName > b.MeetingName:
			return 1
		}
		return 0
	})
	if opts.Limit > 0 && len(mds) > opts.Limit {
		mds = mds[:opts.Limit]
	}
	return func(yield func(artifact.Metadata, error) bool) {
		for _, err := range errs {
			if !yield(artifact.Metadata{}, err) {
				return
			}
		}
		for _, md := range mds {
			if !yield(md, nil) {
				return
			}
		}
	}
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.records, name)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
