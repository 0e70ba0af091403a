package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

type entry struct {
	raw       []byte
	expiresAt time.Time
}

// SessionStore keeps sessions as encoded snapshots, so callers never share
// a *domain.Session across requests (same semantics as the Redis store).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionToken]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store. ttl <= 0 means sessions never expire.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionToken]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.sessions[session.Token]; exists && !s.expired(e) {
		return errors.New("session already exists")
	}

	s.sessions[session.Token] = s.entryFor(raw)
	return nil
}

func (s *SessionStore) UpdateSession(_ context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.sessions[session.Token]; !exists || s.expired(e) {
		return domain.ErrInvalidSession
	}

	s.sessions[session.Token] = s.entryFor(raw)
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, token domain.SessionToken) (*domain.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, domain.ErrInvalidSession
	}

	var sess domain.Session
	if err := json.Unmarshal(e.raw, &sess); err != nil {
		return nil, err
	}
	if sess.Threads == nil {
		sess.Threads = make(map[domain.ClientID]*domain.Thread)
	}
	return &sess, nil
}

func (s *SessionStore) entryFor(raw []byte) entry {
	e := entry{raw: raw}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	return e
}

func (s *SessionStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}
