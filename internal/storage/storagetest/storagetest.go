// Package storagetest holds fixtures and behavioural suites shared by the
// storage backends' tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/storage"
	"github.com/yndnr/websec-go/pkg/client"
	"github.com/yndnr/websec-go/pkg/token"
)

// Credential returns a valid credential for username.
func Credential(username string) *domain.Credential {
	return &domain.Credential{
		Username:  username,
		Algorithm: "pbkdf2-sha256",
		Params:    map[string]int{"iterations": 1000},
		Salt:      []byte("0123456789abcdef"),
		Hash:      []byte("derived-key-bytes-for-" + username),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// Session returns a valid session for username expiring after ttl.
func Session(t testing.TB, username string, ttl time.Duration) *domain.Session {
	t.Helper()
	id, err := domain.GenerateSessionID()
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	c := client.NewIdentity("192.0.2.10", "Mozilla/5.0 (X11; Linux x86_64)")
	c.SetFingerprint(token.NewWithValue("fp", "fingerprint-"+id, now, now.Add(ttl)))
	return &domain.Session{
		ID:          id,
		Username:    username,
		TokenDigest: token.Digest("session-" + id),
		CSRF:        token.NewWithValue("csrf", "csrf-"+id, now, now.Add(ttl)),
		Client:      c,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// RunCredentialStore exercises the CredentialStore contract against a
// fresh store from newStore for each subtest.
func RunCredentialStore(t *testing.T, newStore func(t *testing.T) storage.CredentialStore) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		want := Credential("alice")
		require.NoError(t, s.Create(ctx, want))

		got, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want.Username, got.Username)
		assert.Equal(t, want.Algorithm, got.Algorithm)
		assert.Equal(t, want.Params, got.Params)
		assert.Equal(t, want.Salt, got.Salt)
		assert.Equal(t, want.Hash, got.Hash)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Credential("alice")))
		err := s.Create(ctx, Credential("alice"))
		assert.ErrorIs(t, err, domain.ErrUserExists)
	})

	t.Run("CreateInvalid", func(t *testing.T) {
		s := newStore(t)
		c := Credential("alice")
		c.Hash = nil
		assert.ErrorIs(t, s.Create(ctx, c), domain.ErrCredentialValidation)
	})

	t.Run("ConcurrentCreateOneWins", func(t *testing.T) {
		s := newStore(t)
		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.Create(ctx, Credential("bob"))
			}()
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, errors.Is(err, domain.ErrUserExists), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Credential("alice")))
		updated := Credential("alice")
		updated.Algorithm = "argon2id"
		require.NoError(t, s.Put(ctx, updated))

		got, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "argon2id", got.Algorithm)
	})

	t.Run("DeleteAndCount", func(t *testing.T) {
		s := newStore(t)
		for _, u := range []string{"alice", "bob", "carol"} {
			require.NoError(t, s.Create(ctx, Credential(u)))
		}
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		require.NoError(t, s.Delete(ctx, "bob"))
		require.NoError(t, s.Delete(ctx, "bob"))
		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = s.Get(ctx, "bob")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Credential("alice")))
		got, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		got.Hash[0] ^= 0xff
		got.Params["iterations"] = 1

		again, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, Credential("alice").Hash, again.Hash)
		assert.Equal(t, 1000, again.Params["iterations"])
	})
}

// RunSessionStore exercises the SessionStore contract against a fresh
// store from newStore for each subtest.
func RunSessionStore(t *testing.T, newStore func(t *testing.T) storage.SessionStore) {
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		s := newStore(t)
		want := Session(t, "alice", time.Hour)
		require.NoError(t, s.Put(ctx, want))

		got, err := s.Get(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Username, got.Username)
		assert.Equal(t, want.TokenDigest, got.TokenDigest)
		assert.Equal(t, want.CSRF.Value(), got.CSRF.Value())
		assert.True(t, want.Client.Equal(got.Client))
		fp, ok := got.Fingerprint()
		require.True(t, ok)
		wantFP, _ := want.Fingerprint()
		assert.Equal(t, wantFP.Value(), fp.Value())
		assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "wsss-01jmnxq0000000000000000000")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("PutInvalid", func(t *testing.T) {
		s := newStore(t)
		sess := Session(t, "alice", time.Hour)
		sess.TokenDigest = ""
		assert.ErrorIs(t, s.Put(ctx, sess), domain.ErrBadRequest)
	})

	t.Run("ExpireIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		sess := Session(t, "alice", time.Hour)
		require.NoError(t, s.Put(ctx, sess))

		require.NoError(t, s.Expire(ctx, sess.ID))
		require.NoError(t, s.Expire(ctx, sess.ID))

		_, err := s.Get(ctx, sess.ID)
		assert.True(t,
			errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionExpired),
			"unexpected error: %v", err)
	})

	t.Run("Count", func(t *testing.T) {
		s := newStore(t)
		a := Session(t, "alice", time.Hour)
		b := Session(t, "bob", time.Hour)
		require.NoError(t, s.Put(ctx, a))
		require.NoError(t, s.Put(ctx, b))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, s.Expire(ctx, a.ID))
		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
