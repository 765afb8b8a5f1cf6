package purge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
	"github.com/terra-femme/MedJournee/internal/store/sqlite"
)

func newFixture(t *testing.T) (store.Store, *Coordinator, *model.Session) {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "visits.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	sess, err := st.Sessions().Create(context.Background(), &model.Session{
		UserID:         "user-1",
		PatientName:    "Maria Gonzalez",
		FamilyID:       "family-1",
		TargetLanguage: "es",
		Status:         model.SessionActive,
		StartedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := st.Segments().Append(context.Background(), &model.Segment{
		SessionID:    sess.SessionID,
		Speaker:      "Speaker A",
		SpeakerRole:  model.RoleUnknown,
		OriginalText: "hello",
		TimestampEnd: 1,
		Confidence:   0.9,
		Method:       model.MethodCloudDiarization,
		CreationTime: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append segment: %v", err)
	}
	return st, NewCoordinator(st), sess
}

func terminate(sessionID string, outcome model.SessionStatus) store.TerminateRequest {
	return store.TerminateRequest{
		SessionID:       sessionID,
		Outcome:         outcome,
		EndedAt:         time.Now().UTC(),
		DurationSeconds: 30,
	}
}

func TestCommitCompleted_AtomicJournalAndPurge(t *testing.T) {
	st, c, sess := newFixture(t)
	ctx := context.Background()

	entry, err := c.CommitCompleted(ctx, &model.JournalEntry{
		SessionID:    sess.SessionID,
		UserID:       sess.UserID,
		PatientName:  sess.PatientName,
		FamilyID:     sess.FamilyID,
		VisitDate:    "2026-09-01",
		VisitSummary: "Routine visit.",
		AIModel:      "test-model",
		AIConfidence: 0.8,
	}, terminate(sess.SessionID, model.SessionCompleted))
	if err != nil {
		t.Fatalf("CommitCompleted: %v", err)
	}
	if !entry.Durable() {
		t.Fatalf("privacy flags not stamped: %+v", entry)
	}
	if segs, _ := st.Segments().List(ctx, sess.SessionID); len(segs) != 0 {
		t.Fatalf("segments survived commit: %d", len(segs))
	}
	got, err := st.Sessions().Get(ctx, sess.SessionID)
	if err != nil || got.Status != model.SessionCompleted {
		t.Fatalf("session after commit: %+v err=%v", got, err)
	}

	// A second commit must not land.
	if _, err := c.CommitCompleted(ctx, entry, terminate(sess.SessionID, model.SessionCompleted)); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("second commit: want ErrInvalidState, got %v", err)
	}
}

func TestCommitFailed_PurgesWithoutJournal(t *testing.T) {
	st, c, sess := newFixture(t)
	ctx := context.Background()

	out, err := c.CommitFailed(ctx, terminate(sess.SessionID, model.SessionFailed))
	if err != nil {
		t.Fatalf("CommitFailed: %v", err)
	}
	if out.Status != model.SessionFailed || out.TotalSegments != 1 {
		t.Fatalf("failed commit: %+v", out)
	}
	if segs, _ := st.Segments().List(ctx, sess.SessionID); len(segs) != 0 {
		t.Fatalf("segments survived failed commit: %d", len(segs))
	}
	if _, err := st.Journals().GetBySession(ctx, sess.SessionID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("failed session grew a journal entry: %v", err)
	}
}

func TestCommitFailed_UnknownSession(t *testing.T) {
	_, c, _ := newFixture(t)
	if _, err := c.CommitFailed(context.Background(), terminate("session-missing", model.SessionFailed)); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// brokenStore fails every storage call, simulating a backend outage at
// termination time.
type brokenStore struct{ store.Store }

type brokenSessions struct{ store.Sessions }

type brokenJournals struct{ store.Journals }

func (brokenStore) Sessions() store.Sessions { return brokenSessions{} }
func (brokenStore) Journals() store.Journals { return brokenJournals{} }

func (brokenSessions) Terminate(context.Context, store.TerminateRequest) (*model.Session, error) {
	return nil, errors.New("disk failure")
}

func (brokenJournals) CommitWithPurge(context.Context, *model.JournalEntry, store.TerminateRequest) (*model.JournalEntry, error) {
	return nil, errors.New("disk failure")
}

func TestPurgeFailureIsFatal(t *testing.T) {
	c := NewCoordinator(brokenStore{})
	ctx := context.Background()

	_, err := c.CommitFailed(ctx, terminate("session-1", model.SessionFailed))
	if !model.IsPurgeError(err) {
		t.Fatalf("CommitFailed: want purge error, got %v", err)
	}

	_, err = c.CommitCompleted(ctx, &model.JournalEntry{SessionID: "session-1"}, terminate("session-1", model.SessionCompleted))
	if !model.IsPurgeError(err) {
		t.Fatalf("CommitCompleted: want purge error, got %v", err)
	}
}
