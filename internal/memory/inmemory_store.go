package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps transcripts in process memory. Used by the CLI and
// by tests; sessions expire after ttl of inactivity.
type InMemoryStore struct {
	mu          sync.Mutex
	sessions    map[string][]Message
	touched     map[string]time.Time
	ttl         time.Duration
	maxMessages int
	now         func() time.Time
}

func NewInMemoryStore(ttl time.Duration, maxMessages int) *InMemoryStore {
	return &InMemoryStore{
		sessions:    make(map[string][]Message),
		touched:     make(map[string]time.Time),
		ttl:         ttl,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

func (s *InMemoryStore) LoadSession(_ context.Context, sessionID string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	msgs := make([]Message, len(s.sessions[sessionID]))
	copy(msgs, s.sessions[sessionID])
	return newSessionData(sessionID, msgs), nil
}

func (s *InMemoryStore) AppendMessages(_ context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	all := append(s.sessions[sessionID], msgs...)
	if s.maxMessages > 0 && len(all) > s.maxMessages {
		all = all[len(all)-s.maxMessages:]
	}
	s.sessions[sessionID] = all
	s.touched[sessionID] = s.now()
	return nil
}

func (s *InMemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.touched, sessionID)
	return nil
}

func (s *InMemoryStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *InMemoryStore) expireLocked(sessionID string) {
	if s.ttl <= 0 {
		return
	}
	if last, ok := s.touched[sessionID]; ok && s.now().Sub(last) > s.ttl {
		delete(s.sessions, sessionID)
		delete(s.touched, sessionID)
	}
}
