package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFound_MatchesSentinel(t *testing.T) {
	err := NotFound("record", "abc123")

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound() should match ErrNotFound via errors.Is")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("NotFound() should not match ErrValidation")
	}
}

func TestValidationFailed_CarriesField(t *testing.T) {
	err := ValidationFailed("level", "level must be between 0.1 and 100")

	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationFailed() should match ErrValidation")
	}
	if err.Field != "level" {
		t.Errorf("Field = %q, want %q", err.Field, "level")
	}
	if err.Error() != "level must be between 0.1 and 100" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUnauthorized_GenericMessage(t *testing.T) {
	err := Unauthorized()

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("Unauthorized() should match ErrUnauthorized")
	}
	// The message must stay generic — it is shown to unauthenticated
	// callers and must not hint at what part of the credential failed.
	if err.Error() != "valid authentication required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

// Wrapping with fmt.Errorf("...: %w") must preserve the sentinel chain —
// the handlers rely on this to map service errors to status codes.
func TestWrappedErrorsStillMatch(t *testing.T) {
	inner := NotFound("record", "abc")
	wrapped := fmt.Errorf("updating record: %w", inner)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped AppError should still match ErrNotFound")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should extract the AppError from the chain")
	}
	if appErr.Message != inner.Message {
		t.Errorf("extracted Message = %q, want %q", appErr.Message, inner.Message)
	}
}
