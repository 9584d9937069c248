package meeting

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle position of a Session.
type State int32

const (
	StateIdle State = iota
	StateRecording
	// StateStopping marks an explicit stop whose finalize is still pending.
	StateStopping
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one recording in one room.
type Session struct {
	ID      string
	RoomID  string
	Channel Channel

	// StartTime is fixed when capture starts; every duration is measured
	// from it.
	StartTime time.Time

	voice Voice
	state atomic.Int32
	flush *flusher
	done  chan struct{}

	mu    sync.Mutex
	name  string
	users []string
	seen  map[string]bool
}

func newSession(id, room string, ch Channel) *Session {
	return &Session{
		ID:      id,
		RoomID:  room,
		Channel: ch,
		done:    make(chan struct{}),
		seen:    make(map[string]bool),
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) transition(from, to State) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// Name returns the meeting name, or "" before it is assigned.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setName(n string) {
	s.mu.Lock()
	s.name = n
	s.mu.Unlock()
}

// Done is closed once the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} { return s.done }

// addUsers records the speakers of bufs in first-seen order.
func (s *Session) addUsers(bufs []SpeakerBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bufs {
		if !s.seen[b.UserID] {
			s.seen[b.UserID] = true
			s.users = append(s.users, b.UserID)
		}
	}
}

// Users returns every user heard during the session.
func (s *Session) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users...)
}
