package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	reserved map[string]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		reserved: make(map[string]struct{}),
	}
}

func (s *SessionStore) Reserve(_ context.Context, pin, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takenLocked(pin) {
		return domain.ErrPinInUse
	}
	s.reserved[pin] = struct{}{}
	return nil
}

func (s *SessionStore) Release(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserved, pin)
}

func (s *SessionStore) Create(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.PIN()]; ok {
		return domain.ErrPinInUse
	}
	delete(s.reserved, session.PIN())
	s.sessions[session.PIN()] = session
	return nil
}

func (s *SessionStore) Get(pin string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[pin]
	return session, ok
}

func (s *SessionStore) Exists(pin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.takenLocked(pin)
}

// Touch is a no-op; in-process sessions do not expire.
func (s *SessionStore) Touch(string) {}

func (s *SessionStore) Delete(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, pin)
}

// List returns live sessions ordered by PIN.
func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PIN() < out[j].PIN() })
	return out
}

func (s *SessionStore) takenLocked(pin string) bool {
	if _, ok := s.sessions[pin]; ok {
		return true
	}
	_, ok := s.reserved[pin]
	return ok
}
