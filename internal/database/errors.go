package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors returned by store operations. Handlers map these to
// HTTP status codes; everything else is a StoreError (backend failure).
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports a missing or malformed field on create/update
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// StoreError wraps a backend failure (unreachable database, failed query)
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapErr maps gorm errors to the store's error taxonomy
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}
