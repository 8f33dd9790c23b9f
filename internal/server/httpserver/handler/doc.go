// Package handler implements the websec HTTP endpoints: signup, login,
// logout, session inspection, password change and health.
//
// Every JSON response uses the Response envelope. Errors carry the
// domain error code both in the body and in the X-Error-Code header, and
// their HTTP status comes from the code.
package handler
