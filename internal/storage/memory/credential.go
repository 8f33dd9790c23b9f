package memory

import (
	"context"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/storage"
	"github.com/yndnr/websec-go/pkg/cmap"
)

// CredentialStore keeps credentials in memory. It is lost on restart and
// is meant for tests and single-process demos.
type CredentialStore struct {
	creds *cmap.Map[*domain.Credential]
}

var _ storage.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: cmap.New[*domain.Credential]()}
}

// Get implements storage.CredentialStore.
func (s *CredentialStore) Get(_ context.Context, username string) (*domain.Credential, error) {
	cred, ok := s.creds.Get(username)
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return cred.Clone(), nil
}

// Create implements storage.CredentialStore.
func (s *CredentialStore) Create(_ context.Context, cred *domain.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	if !s.creds.SetIfAbsent(cred.Username, cred.Clone()) {
		return domain.ErrUserExists
	}
	return nil
}

// Put implements storage.CredentialStore.
func (s *CredentialStore) Put(_ context.Context, cred *domain.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	s.creds.Set(cred.Username, cred.Clone())
	return nil
}

// Delete implements storage.CredentialStore.
func (s *CredentialStore) Delete(_ context.Context, username string) error {
	s.creds.Delete(username)
	return nil
}

// Count implements storage.CredentialStore.
func (s *CredentialStore) Count(context.Context) (int, error) {
	return s.creds.Count(), nil
}

// Close implements storage.CredentialStore.
func (s *CredentialStore) Close() error { return nil }
