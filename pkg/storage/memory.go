package storage

import (
	"context"
	"sync"
)

// Memory is an in-memory BlobStore. It is safe for concurrent use and
// intended for tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

type memBlob struct {
	data        []byte
	contentType string
}

var _ BlobStore = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memBlob)}
}

func (m *Memory) Put(_ context.Context, path string, data []byte, contentType string) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.blobs[path] = memBlob{data: cp, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	b, ok := m.blobs[path]
	m.mu.RUnlock()
	if !ok {
		return nil, notExist("get", path)
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Object, error) {
	p := dirPrefix(prefix)
	m.mu.RLock()
	defer m.mu.RUnlock()
	objs := []Object{}
	for k, b := range m.blobs {
		if name, ok := direct(p, k); ok {
			objs = append(objs, Object{Name: name, Size: int64(len(b.data))})
		}
	}
	return sortObjects(objs), nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.blobs, path)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	_, ok := m.blobs[path]
	m.mu.RUnlock()
	return ok, nil
}

// ContentType returns the content type recorded for path.
func (m *Memory) ContentType(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[path].contentType
}

// Paths returns every stored path.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		out = append(out, k)
	}
	return out
}
