package model

import (
	"errors"
	"testing"
)

func TestSessionStatusTerminal(t *testing.T) {
	if SessionActive.Terminal() {
		t.Fatal("active must not be terminal")
	}
	if !SessionCompleted.Terminal() || !SessionFailed.Terminal() {
		t.Fatal("completed and failed are terminal")
	}
}

func TestJournalEntryDurable(t *testing.T) {
	e := &JournalEntry{ConsentGiven: true, AudioDeleted: true, TranscriptsDeleted: true}
	if !e.Durable() {
		t.Fatal("all flags set should be durable")
	}
	e.TranscriptsDeleted = false
	if e.Durable() {
		t.Fatal("missing flag must not be durable")
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("userId", "required")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("validation error should unwrap to sentinel: %v", err)
	}
}

func TestErrorPredicates(t *testing.T) {
	ese := &ExternalServiceError{Service: "summarizer", Err: errors.New("down")}
	if !IsExternalServiceError(ese) || IsExternalServiceError(errors.New("other")) {
		t.Fatal("external service predicate")
	}
	pe := &PurgeError{SessionID: "session-1", Err: errors.New("disk")}
	if !IsPurgeError(pe) || IsPurgeError(ese) {
		t.Fatal("purge predicate")
	}
}
