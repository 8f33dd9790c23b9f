package redisstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/storage"
)

// CredentialStore implements storage.CredentialStore on Redis.
type CredentialStore struct {
	client redis.UniversalClient
	prefix string
}

var _ storage.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore wraps client. The client is closed by Close.
func NewCredentialStore(client redis.UniversalClient) *CredentialStore {
	return &CredentialStore{
		client: client,
		prefix: DefaultPrefix + "cred:",
	}
}

func (s *CredentialStore) key(username string) string {
	return s.prefix + username
}

// Get implements storage.CredentialStore.
func (s *CredentialStore) Get(ctx context.Context, username string) (*domain.Credential, error) {
	data, err := s.client.Get(ctx, s.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return &cred, nil
}

// Create implements storage.CredentialStore using SETNX.
func (s *CredentialStore) Create(ctx context.Context, cred *domain.Credential) error {
	data, err := s.encode(cred)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(cred.Username), data, 0).Result()
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if !ok {
		return domain.ErrUserExists
	}
	return nil
}

// Put implements storage.CredentialStore.
func (s *CredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	data, err := s.encode(cred)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(cred.Username), data, 0).Err(); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

func (s *CredentialStore) encode(cred *domain.Credential) ([]byte, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return data, nil
}

// Delete implements storage.CredentialStore.
func (s *CredentialStore) Delete(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, s.key(username)).Err(); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Count implements storage.CredentialStore.
func (s *CredentialStore) Count(ctx context.Context) (int, error) {
	n, err := countKeys(ctx, s.client, s.prefix+"*")
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return n, nil
}

// Close closes the Redis client.
func (s *CredentialStore) Close() error {
	return s.client.Close()
}
