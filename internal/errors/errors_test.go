package errors

import (
	"context"
	"errors"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrInputAmbiguous,
		ErrNoConfidentIntent,
		ErrUnknownCourse,
		ErrCollaboratorUnavailable,
		ErrCorpusEmpty,
		ErrNotFound,
		ErrInvalidInput,
		ErrArtifactStale,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v unexpectedly matches %v", a, b)
			}
		}
	}
}

func TestCollaboratorErrorUnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	err := NewCollaboratorError("translator", errors.New("connection refused"))
	if !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Error("CollaboratorError should match ErrCollaboratorUnavailable")
	}
	if got := err.Error(); got != "collaborator translator: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCollaboratorErrorKeepsCauseVisible(t *testing.T) {
	t.Parallel()

	// Context errors must stay matchable through the wrapper so callers can
	// tell a cancelled request apart from a broken collaborator.
	err := NewCollaboratorError("fallback", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("wrapped cause should match through errors.Is")
	}
	if !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Error("sentinel match lost when cause is wrapped")
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("percentage", "must be numeric")
	want := "validation failed on percentage: must be numeric"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}
