package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches APIErrors for missing items and endpoints.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches APIErrors for a missing, expired or rejected token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoToken is returned when a call needs a token and none is configured.
	ErrNoToken = errors.New("no access token configured")
	// ErrClosed is returned by calls on a closed Client.
	ErrClosed = errors.New("client closed")
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets callers test against ErrNotFound and ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func newAPIError(op string, status int, body []byte) *APIError {
	e := &APIError{Op: op, StatusCode: status}
	var wire struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &wire) == nil {
		e.Message = wire.Message
		if e.Message == "" {
			e.Message = wire.Error
		}
	}
	return e
}
