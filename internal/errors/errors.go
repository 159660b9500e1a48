// Package errors provides domain-specific error types and sentinel errors
// for the dialogue resolution core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core error taxonomy.
// Use errors.Is() to check these errors in your code.
var (
	// ErrInputAmbiguous indicates fact extraction was incomplete and the
	// user must be re-prompted for the missing piece.
	ErrInputAmbiguous = errors.New("input ambiguous")

	// ErrNoConfidentIntent indicates the classifier confidence fell below
	// the acceptance threshold.
	ErrNoConfidentIntent = errors.New("no confident intent")

	// ErrUnknownCourse indicates an extracted course key has no rule entry.
	ErrUnknownCourse = errors.New("unknown course")

	// ErrCollaboratorUnavailable indicates an external collaborator
	// (translation, fallback, ticketing, email) failed or is not configured.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrCorpusEmpty indicates the classifier was trained with no patterns.
	ErrCorpusEmpty = errors.New("training corpus empty")

	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates user provided invalid input for a slot.
	ErrInvalidInput = errors.New("invalid input")

	// ErrArtifactStale indicates a persisted classifier artifact no longer
	// matches the current knowledge base.
	ErrArtifactStale = errors.New("classifier artifact stale")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// CollaboratorError records which external collaborator failed.
// It unwraps to both ErrCollaboratorUnavailable and the underlying cause,
// so callers can branch on the sentinel without caring which collaborator
// broke while context errors stay visible to errors.Is.
type CollaboratorError struct {
	Collaborator string // "translator", "fallback", "ticketing", "feedback", "tts"
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaboratorUnavailable, e.Err}
}

// NewCollaboratorError creates a new collaborator error.
func NewCollaboratorError(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}
