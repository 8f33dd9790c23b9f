package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "[WS-TEST-4000] bad thing", NewDomainError("WS-TEST-4000", "bad thing").Error())
	assert.Equal(t, "[WS-TEST-4000] bad thing: field x",
		NewDomainError("WS-TEST-4000", "bad thing").WithDetails("field x").Error())
}

func TestDomainError_IsMatchesCode(t *testing.T) {
	detailed := ErrSessionNotFound.WithDetails("wsss-01")
	assert.ErrorIs(t, detailed, ErrSessionNotFound)
	assert.ErrorIs(t, fmt.Errorf("lookup: %w", detailed), ErrSessionNotFound)
	assert.NotErrorIs(t, detailed, ErrSessionExpired)
	assert.NotErrorIs(t, errors.New("plain"), ErrSessionNotFound)
}

func TestDomainError_CopiesDoNotMutate(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrStorageError.WithDetails("put").WithCause(cause)

	assert.Equal(t, "put", err.Details)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, ErrStorageError.Details)
	assert.Nil(t, ErrStorageError.Cause)
}

func TestAsDomainError(t *testing.T) {
	de, ok := AsDomainError(fmt.Errorf("wrapped: %w", ErrUserExists))
	require.True(t, ok)
	assert.Equal(t, "WS-CRED-4090", de.Code)

	_, ok = AsDomainError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = AsDomainError(nil)
	assert.False(t, ok)
}

func TestErrorCatalog(t *testing.T) {
	tests := []struct {
		err    *DomainError
		code   string
		status int
	}{
		{ErrInvalidCredentials, "WS-AUTH-4010", http.StatusUnauthorized},
		{ErrCSRFMismatch, "WS-AUTH-4030", http.StatusForbidden},
		{ErrCrossSiteRequest, "WS-AUTH-4032", http.StatusForbidden},
		{ErrIPNotAllowed, "WS-AUTH-4031", http.StatusForbidden},
		{ErrTooManyAttempts, "WS-AUTH-4290", http.StatusTooManyRequests},
		{ErrSessionMissing, "WS-SESS-4010", http.StatusUnauthorized},
		{ErrClientMismatch, "WS-SESS-4011", http.StatusUnauthorized},
		{ErrFingerprintMismatch, "WS-SESS-4012", http.StatusUnauthorized},
		{ErrSessionExpired, "WS-SESS-4013", http.StatusUnauthorized},
		{ErrSessionNotFound, "WS-SESS-4040", http.StatusNotFound},
		{ErrCredentialValidation, "WS-CRED-4001", http.StatusBadRequest},
		{ErrCredentialNotFound, "WS-CRED-4040", http.StatusNotFound},
		{ErrUserExists, "WS-CRED-4090", http.StatusConflict},
		{ErrCredentialOperation, "WS-CRED-5000", http.StatusInternalServerError},
		{ErrBadRequest, "WS-SYS-4000", http.StatusBadRequest},
		{ErrInternalServer, "WS-SYS-5000", http.StatusInternalServerError},
		{ErrStorageError, "WS-SYS-5001", http.StatusInternalServerError},
		{ErrServiceUnavailable, "WS-SYS-5030", http.StatusServiceUnavailable},
	}
	seen := make(map[string]bool)
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.NotEmpty(t, tt.err.Message, tt.code)
		assert.Equal(t, tt.status, tt.err.HTTPStatus(), tt.code)
		assert.False(t, seen[tt.code], "duplicate code %s", tt.code)
		seen[tt.code] = true
	}
}

func TestHTTPStatus_Malformed(t *testing.T) {
	for _, code := range []string{"", "X", "WS-SYS-ABCD", "WS-SYS-1001", "WS-SYS-9990", "WS-SYS-40000", "WS-SYS-400"} {
		assert.Equal(t, http.StatusInternalServerError, NewDomainError(code, "m").HTTPStatus(), code)
	}
}
