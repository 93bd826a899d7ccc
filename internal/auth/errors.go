package auth

import "errors"

var (
	// ErrMissingToken is returned when a request carries no bearer token
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned when a token fails signature or claim checks
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrRejected is returned when the auth service refuses a request
	ErrRejected = errors.New("auth service rejected the request")

	// ErrNotConfigured is returned when no auth service URL is set
	ErrNotConfigured = errors.New("auth service is not configured")
)
