// Package redis keeps session state in Redis. The key TTL is the session
// expiry: an expired token reads as domain.ErrInvalidSession.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

const keyPrefix = "csrlab:session:"

type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a store backed by Redis. ttl <= 0 disables expiry.
func NewSessionStore(addr, password string, db int, ttl time.Duration) *SessionStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewSessionStoreWithClient(rdb, ttl)
}

func NewSessionStoreWithClient(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl < 0 {
		ttl = 0
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Ping verifies connectivity at startup.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}

func key(token domain.SessionToken) string {
	return keyPrefix + string(token)
}

func (s *SessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, key(session.Token), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis CreateSession: %w", err)
	}
	if !ok {
		return errors.New("session already exists")
	}
	return nil
}

// UpdateSession only writes when the key still exists, so an expired
// session cannot be resurrected by a late request.
func (s *SessionStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := s.client.SetXX(ctx, key(session.Token), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis UpdateSession: %w", err)
	}
	if !ok {
		return domain.ErrInvalidSession
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, token domain.SessionToken) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis GetSession: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("redis GetSession decode: %w", err)
	}
	if sess.Threads == nil {
		sess.Threads = make(map[domain.ClientID]*domain.Thread)
	}
	return &sess, nil
}
