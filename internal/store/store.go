package store

import (
	"context"
	"time"

	"github.com/terra-femme/MedJournee/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres, sqlite).
type Store interface {
	Sessions() Sessions
	Segments() Segments
	Journals() Journals
	Enrollments() Enrollments

	// HealthPing verifies backend connectivity.
	HealthPing(ctx context.Context) error
}

// TerminateRequest carries the terminal stamp applied to a session. The
// storage layer refuses it unless the session is still active, so a terminal
// status can never be overwritten even by a racing caller.
type TerminateRequest struct {
	SessionID       string
	Outcome         model.SessionStatus
	EndedAt         time.Time
	DurationSeconds int
}

type Sessions interface {
	Create(ctx context.Context, s *model.Session) (*model.Session, error)
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	List(ctx context.Context, userID string) ([]*model.Session, error)

	// Terminate atomically deletes the session's segments, records the final
	// segment count, and stamps the terminal status. Used for the no-journal
	// (failed) path. Returns model.ErrNotFound for unknown ids and
	// model.ErrInvalidState when the session is already terminal.
	Terminate(ctx context.Context, req TerminateRequest) (*model.Session, error)
}

type Segments interface {
	Append(ctx context.Context, seg *model.Segment) (*model.Segment, error)
	List(ctx context.Context, sessionID string) ([]*model.Segment, error)

	// LastEnd returns the timestamp_end of the most recently accepted segment.
	// ok is false when the session has no segments yet.
	LastEnd(ctx context.Context, sessionID string) (end float64, ok bool, err error)

	Count(ctx context.Context, sessionID string) (int, error)

	// Purge deletes all segments for the session. Idempotent: purging an
	// already-empty session is a no-op.
	Purge(ctx context.Context, sessionID string) error
}

type Journals interface {
	// CommitWithPurge persists the entry and deletes the session's segments as
	// one transaction, stamping the session terminal in the same unit. Either
	// everything commits or nothing does. At most one entry may exist per
	// session; a pre-existing entry aborts the transaction with
	// model.ErrInvalidState.
	CommitWithPurge(ctx context.Context, entry *model.JournalEntry, req TerminateRequest) (*model.JournalEntry, error)

	GetBySession(ctx context.Context, sessionID string) (*model.JournalEntry, error)
	GetByID(ctx context.Context, entryID string) (*model.JournalEntry, error)
	List(ctx context.Context, userID string, limit int) ([]*model.JournalEntry, error)
	UpdatePersonalNotes(ctx context.Context, entryID, notes string) (*model.JournalEntry, error)
}

type Enrollments interface {
	Create(ctx context.Context, e *model.VoiceEnrollment) (*model.VoiceEnrollment, error)
	GetByID(ctx context.Context, enrollmentID string) (*model.VoiceEnrollment, error)
	ListActiveByFamily(ctx context.Context, familyID string) ([]*model.VoiceEnrollment, error)

	// Deactivate clears the active flag; enrollments are never deleted so the
	// audit trail survives.
	Deactivate(ctx context.Context, enrollmentID string) error
}
