// Package services defines the business logic for apartment ingestion and
// the dashboard snapshot. This file centralizes service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrApartmentNotFound indicates that the requested apartment does not
	// exist.
	ErrApartmentNotFound = errors.New("apartment not found")

	// ErrSnapshotFailed is returned when a write succeeded but the full list
	// could not be read back for broadcasting.
	ErrSnapshotFailed = errors.New("snapshot read failed after write")
)

// ValidationError rejects a payload because of a single field. Message is
// safe to return to the caller; it never echoes the submitted value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// invalid is a small constructor used by the validator.
func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
