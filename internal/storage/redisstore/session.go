package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/storage"
)

// SessionStore implements storage.SessionStore on Redis.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore wraps client. The client is closed by Close.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: DefaultPrefix + "session:",
		now:    time.Now,
	}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

// Get implements storage.SessionStore.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	// Redis expiry has millisecond resolution; close the gap.
	if sess.IsExpired(s.now()) {
		return nil, domain.ErrSessionExpired
	}
	return &sess, nil
}

// Put implements storage.SessionStore.
func (s *SessionStore) Put(ctx context.Context, sess *domain.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	ttl := sess.TTL(s.now())
	if ttl <= 0 {
		// Already expired: nothing worth storing.
		return s.Expire(ctx, sess.ID)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Expire implements storage.SessionStore.
func (s *SessionStore) Expire(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Count implements storage.SessionStore.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	n, err := countKeys(ctx, s.client, s.prefix+"*")
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return n, nil
}

// Close closes the Redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}
