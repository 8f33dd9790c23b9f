// Package domain defines the core domain models for websec.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DomainError is an error with a stable WS-<AREA>-<NNNN> code. The first
// three digits of NNNN are the HTTP status it maps to, so WS-SESS-4013 is
// a 401. Errors compare equal under errors.Is when their codes match.
type DomainError struct {
	Code    string
	Message string
	// Details is returned to clients; Cause is only logged.
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Cause }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError creates an error with code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy carrying client-visible details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// AsDomainError finds the first DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// HTTPStatus returns the status encoded in the code, or 500 when the code
// is malformed or outside 4xx/5xx.
func (e *DomainError) HTTPStatus() int {
	i := strings.LastIndexByte(e.Code, '-')
	if i < 0 || len(e.Code)-i-1 != 4 {
		return http.StatusInternalServerError
	}
	status, err := strconv.Atoi(e.Code[i+1 : i+4])
	if err != nil || status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrInvalidCredentials is the single answer to every failed login.
	// It never reveals whether the user exists or which step failed.
	ErrInvalidCredentials = NewDomainError("WS-AUTH-4010", "invalid credentials")

	// ErrCSRFMismatch indicates a missing or wrong CSRF token.
	ErrCSRFMismatch = NewDomainError("WS-AUTH-4030", "csrf token mismatch")

	// ErrIPNotAllowed indicates the client IP is not in the allow list.
	ErrIPNotAllowed = NewDomainError("WS-AUTH-4031", "ip not in allowlist")

	// ErrCrossSiteRequest indicates a state-changing request sent by
	// another site.
	ErrCrossSiteRequest = NewDomainError("WS-AUTH-4032", "cross-site request rejected")

	// ErrTooManyAttempts indicates login throttling kicked in.
	ErrTooManyAttempts = NewDomainError("WS-AUTH-4290", "too many attempts")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionMissing indicates the request carried no session token.
	ErrSessionMissing = NewDomainError("WS-SESS-4010", "session required")

	// ErrClientMismatch indicates the session is presented by a different
	// client (IP or user agent changed).
	ErrClientMismatch = NewDomainError("WS-SESS-4011", "client mismatch")

	// ErrFingerprintMismatch indicates the fingerprint cookie does not match
	// the token bound to the session's client.
	ErrFingerprintMismatch = NewDomainError("WS-SESS-4012", "fingerprint mismatch")

	// ErrSessionExpired indicates the session has expired.
	ErrSessionExpired = NewDomainError("WS-SESS-4013", "session expired")

	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = NewDomainError("WS-SESS-4040", "session not found")
)

// ============================================================================
// Credential Errors (CRED)
// ============================================================================

var (
	// ErrCredentialValidation indicates username or password rules failed.
	ErrCredentialValidation = NewDomainError("WS-CRED-4001", "credential validation failed")

	// ErrCredentialNotFound indicates no credential exists for the username.
	ErrCredentialNotFound = NewDomainError("WS-CRED-4040", "credential not found")

	// ErrUserExists indicates the username is already registered.
	ErrUserExists = NewDomainError("WS-CRED-4090", "user already exists")

	// ErrCredentialOperation indicates hashing failed. The cause is logged,
	// never returned to the client.
	ErrCredentialOperation = NewDomainError("WS-CRED-5000", "credential operation failed")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("WS-SYS-4000", "bad request")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("WS-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("WS-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("WS-SYS-5030", "service unavailable")
)
