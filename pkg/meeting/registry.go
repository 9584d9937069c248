package meeting

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/haivivi/meetrec/pkg/meeterr"
)

const registryShards = 32

// Registry maps room IDs to their active session. Rooms are spread over
// shards so different rooms do not contend on one lock.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*Session)
	}
	return r
}

func (r *Registry) shard(key string) *registryShard {
	return &r.shards[xxhash.Sum64String(key)%registryShards]
}

// Create registers s under key. It returns meeterr.ErrAlreadyActive and
// leaves the table unchanged when key is taken.
func (r *Registry) Create(key string, s *Session) error {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[key]; ok {
		return meeterr.ErrAlreadyActive
	}
	sh.sessions[key] = s
	return nil
}

func (r *Registry) Get(key string) (*Session, bool) {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[key]
	return s, ok
}

func (r *Registry) Remove(key string) {
	sh := r.shard(key)
	sh.mu.Lock()
	delete(sh.sessions, key)
	sh.mu.Unlock()
}

// RemoveIf removes key only while it still maps to s.
func (r *Registry) RemoveIf(key string, s *Session) bool {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.sessions[key]; ok && cur == s {
		delete(sh.sessions, key)
		return true
	}
	return false
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// Keys returns the active room IDs in no particular order.
func (r *Registry) Keys() []string {
	var keys []string
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for k := range sh.sessions {
			keys = append(keys, k)
		}
		sh.mu.Unlock()
	}
	return keys
}
