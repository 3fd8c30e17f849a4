// Package shared contains common domain errors and events used across all domain
// packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrMisconfigured   = errors.New("misconfigured")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLocked                 = errors.New("resource is locked")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "course", "content"
	Op      string // Operation that failed, e.g., "PrepareNextDay"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Course domain errors
var (
	ErrCourseNotFound      = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrCourseAlreadyExists = NewDomainError("course", "Create", ErrAlreadyExists, "course already exists")
	ErrNoLanguages         = NewDomainError("course", "Validate", ErrMisconfigured, "course has no languages")
	ErrNoPacks             = NewDomainError("course", "Validate", ErrMisconfigured, "course has no packs")
	ErrInvalidBatchSize    = NewDomainError("course", "Validate", ErrMisconfigured, "sentences per day must be positive")
	ErrInvalidOrder        = NewDomainError("course", "Validate", ErrMisconfigured, "order references an unknown language")
	ErrInvalidCursor       = NewDomainError("course", "SetCursor", ErrValueOutOfRange, "cursor cannot be negative")
	ErrCursorTooLarge      = NewDomainError("course", "SetCursor", ErrValueOutOfRange, "cursor is past the last supported sentence")
	ErrPauseOutOfRange     = NewDomainError("course", "SetPause", ErrValueOutOfRange, "pause must be between 0 and 10 minutes")
	ErrInvalidSentence     = NewDomainError("course", "SetStartingSentence", ErrInvalidInput, "sentence index must be positive")
	ErrNoCurrentDay        = NewDomainError("course", "Day", ErrInvalidState, "course has no current day")
	ErrDayCompleted        = NewDomainError("course", "Day", ErrInvalidState, "current day is already completed")
	ErrInvalidReps         = NewDomainError("course", "AddReps", ErrNegativeValue, "repetitions cannot be negative")
	ErrStaleCourse         = NewDomainError("course", "Save", ErrConcurrentModification, "course was modified concurrently")
	ErrCourseLocked        = NewDomainError("course", "Lock", ErrLocked, "course is being modified by another writer")
)

// Content domain errors
var (
	ErrLanguageNotFound = NewDomainError("content", "FindLanguage", ErrNotFound, "language not found")
	ErrPackNotFound     = NewDomainError("content", "FindPack", ErrNotFound, "pack not found")
	ErrInvalidLanguage  = NewDomainError("content", "Validate", ErrInvalidID, "invalid language code")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMisconfigured checks if the error is a configuration error.
func IsMisconfigured(err error) bool {
	return errors.Is(err, ErrMisconfigured)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrMisconfigured)
}

// IsConflict checks if the error is caused by a competing writer.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrLocked)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		IsConflict(err)
}
