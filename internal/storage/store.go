package storage

import (
	"context"

	"github.com/yndnr/websec-go/internal/core/domain"
)

// CredentialStore persists password hashes keyed by normalized username.
type CredentialStore interface {
	// Get returns domain.ErrCredentialNotFound when username is unknown.
	Get(ctx context.Context, username string) (*domain.Credential, error)

	// Create stores a new credential, or returns domain.ErrUserExists.
	Create(ctx context.Context, cred *domain.Credential) error

	// Put creates or replaces a credential (password change, rehash).
	Put(ctx context.Context, cred *domain.Credential) error

	// Delete removes a credential. Deleting an unknown user is not an error.
	Delete(ctx context.Context, username string) error

	// Count returns the number of stored credentials.
	Count(ctx context.Context) (int, error)

	Close() error
}

// SessionStore holds login sessions until they expire.
type SessionStore interface {
	// Get returns domain.ErrSessionNotFound for unknown IDs and
	// domain.ErrSessionExpired for sessions past their expiry.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Put stores or replaces a session.
	Put(ctx context.Context, s *domain.Session) error

	// Expire ends a session now. Expiring an unknown session is not an
	// error.
	Expire(ctx context.Context, id string) error

	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)

	Close() error
}
