package redis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const defaultOpTimeout = time.Second

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves live in a local map; the game loop and its timers
//     are in-process.
//   - Redis holds a PIN reservation per live session so that several instances
//     sharing one Redis never hand out the same PIN.
//   - Only Reserve waits on Redis. Touch, Release and Delete update the key
//     in the background; a PIN stays taken locally until its key is gone.
type SessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
	reserved map[string]struct{}
	pending  sync.WaitGroup
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		timeout:  defaultOpTimeout,
		sessions: make(map[string]*app.Session),
		reserved: make(map[string]struct{}),
	}
}

// Reserve claims pin in Redis for hostID. A Redis outage degrades to
// local-only uniqueness.
func (s *SessionStore) Reserve(ctx context.Context, pin, hostID string) error {
	s.mu.Lock()
	if s.takenLocked(pin) {
		s.mu.Unlock()
		return domain.ErrPinInUse
	}
	s.reserved[pin] = struct{}{}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reserved, err := s.client.SetNX(ctx, s.key(pin), hostID, s.ttl).Result()
	switch {
	case err != nil:
		log.Warn().Err(err).Str("pin", pin).Msg("redis pin reservation failed")
	case !reserved:
		s.mu.Lock()
		delete(s.reserved, pin)
		s.mu.Unlock()
		return domain.ErrPinInUse
	}
	return nil
}

// Release drops a reservation that never became a session.
func (s *SessionStore) Release(pin string) {
	s.mu.RLock()
	_, ok := s.reserved[pin]
	_, live := s.sessions[pin]
	s.mu.RUnlock()
	if ok && !live {
		s.unreserve(pin)
	}
}

// Create registers a session whose PIN is free or reserved here.
func (s *SessionStore) Create(session *app.Session) error {
	pin := session.PIN()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[pin]; ok {
		return domain.ErrPinInUse
	}
	delete(s.reserved, pin)
	s.sessions[pin] = session
	return nil
}

func (s *SessionStore) Get(pin string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[pin]
	return session, ok
}

// Exists reports whether pin is live or reserved on this instance. Other
// instances' reservations surface through Reserve.
func (s *SessionStore) Exists(pin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.takenLocked(pin)
}

// Touch pushes the reservation's expiry out by another ttl.
func (s *SessionStore) Touch(pin string) {
	if _, ok := s.Get(pin); !ok {
		return
	}
	s.background(pin, "refresh", func(ctx context.Context) error {
		return s.client.Expire(ctx, s.key(pin), s.ttl).Err()
	})
}

func (s *SessionStore) Delete(pin string) {
	s.mu.Lock()
	if _, ok := s.sessions[pin]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, pin)
	s.reserved[pin] = struct{}{}
	s.mu.Unlock()

	s.unreserve(pin)
}

// List returns the sessions owned by this instance ordered by PIN.
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

// Wait blocks until background key updates have finished.
func (s *SessionStore) Wait() {
	s.pending.Wait()
}

func (s *SessionStore) unreserve(pin string) {
	s.background(pin, "release", func(ctx context.Context) error {
		err := s.client.Del(ctx, s.key(pin)).Err()
		s.mu.Lock()
		if _, live := s.sessions[pin]; !live {
			delete(s.reserved, pin)
		}
		s.mu.Unlock()
		return err
	})
}

func (s *SessionStore) background(pin, op string, fn func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("pin", pin).Str("op", op).Msg("redis pin update failed")
		}
	}()
}

func (s *SessionStore) takenLocked(pin string) bool {
	if _, ok := s.sessions[pin]; ok {
		return true
	}
	_, ok := s.reserved[pin]
	return ok
}

func (s *SessionStore) key(pin string) string {
	return "quiz:session:" + pin
}
