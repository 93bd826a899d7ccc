package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("not authenticated")
)

// Category tells callers whether repeating the operation might succeed.
type Category int

const (
	// Permanent failures repeat on retry: bad input, bad credentials, 4xx.
	Permanent Category = iota
	// Temporary failures may clear: network errors, 408, 429, 5xx.
	Temporary
)

func (c Category) String() string {
	if c == Temporary {
		return "temporary"
	}
	return "permanent"
}

// CategoryForStatus maps an HTTP status from a backend to a Category.
// Status 0 stands for a transport-level failure.
func CategoryForStatus(status int) Category {
	switch {
	case status == 0:
		return Temporary
	case status == 408 || status == 429:
		return Temporary
	case status >= 500:
		return Temporary
	default:
		return Permanent
	}
}

// StoreError reports a failed row store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err unless it already is a StoreError.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// AIError reports a failed or unusable generative AI call.
type AIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *AIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ai %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}
func (e *AIError) Unwrap() error { return e.Err }

// Category classifies the failure by its HTTP status.
func (e *AIError) Category() Category { return CategoryForStatus(e.StatusCode) }

// AuthError reports a rejected sign-in, sign-up or session operation.
type AuthError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("auth %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

// Category classifies the failure by its HTTP status.
func (e *AuthError) Category() Category { return CategoryForStatus(e.StatusCode) }

// ValidationError reports input that cannot be processed as given.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTemporary reports whether err is an AI or auth failure worth repeating.
func IsTemporary(err error) bool {
	var ae *AIError
	if errors.As(err, &ae) {
		return ae.Category() == Temporary
	}
	var au *AuthError
	if errors.As(err, &au) {
		return au.Category() == Temporary
	}
	return false
}
