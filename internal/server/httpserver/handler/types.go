package handler

import "time"

// Response is the JSON envelope used by every endpoint except /metrics.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   string `json:"details,omitempty"`
}

// CodeOK is the envelope code of successful responses.
const CodeOK = "OK"

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      CodeOK,
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message, details string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// CredentialsRequest is the body of POST /signup and POST /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordChangeRequest is the body of POST /password.
type PasswordChangeRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

// SignupResponse is returned by POST /signup.
type SignupResponse struct {
	Username  string    `json:"username"`
	Algorithm string    `json:"algorithm"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse describes the caller's session. It is returned by
// POST /login and GET /session.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	CSRFToken string    `json:"csrf_token"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
	Time    time.Time         `json:"time"`
}
