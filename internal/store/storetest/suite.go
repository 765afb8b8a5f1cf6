// Package storetest holds a compliance suite shared by store adapters.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
)

// Run exercises the store contract against an implementation. makeStore must
// return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	if err := s.HealthPing(ctx); err != nil {
		t.Fatalf("HealthPing: %v", err)
	}

	userID := "u-" + uuid.New().String()
	familyID := "f-" + uuid.New().String()

	// Sessions
	sess, err := s.Sessions().Create(ctx, &model.Session{
		UserID:         userID,
		PatientName:    "Maria Gonzalez",
		FamilyID:       familyID,
		TargetLanguage: "es",
		Status:         model.SessionActive,
		StartedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.SessionID == "" {
		t.Fatalf("CreateSession: empty session id")
	}
	if got, err := s.Sessions().Get(ctx, sess.SessionID); err != nil || got.Status != model.SessionActive {
		t.Fatalf("GetSession: got=%v err=%v", got, err)
	}
	if _, err := s.Sessions().Get(ctx, "session-missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetSession missing: want ErrNotFound, got %v", err)
	}
	if lst, err := s.Sessions().List(ctx, userID); err != nil || len(lst) != 1 {
		t.Fatalf("ListSessions: n=%d err=%v", len(lst), err)
	}

	// Segments
	for i, text := range []string{"How are you feeling?", "Me duele la cabeza."} {
		_, err := s.Segments().Append(ctx, &model.Segment{
			SessionID:      sess.SessionID,
			Speaker:        "Speaker A",
			SpeakerRole:    model.RoleProvider,
			OriginalText:   text,
			TranslatedText: text,
			TimestampStart: float64(i) * 2,
			TimestampEnd:   float64(i)*2 + 1.5,
			Confidence:     0.9,
			Method:         model.MethodCloudDiarization,
			CreationTime:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("AppendSegment %d: %v", i, err)
		}
	}
	segs, err := s.Segments().List(ctx, sess.SessionID)
	if err != nil || len(segs) != 2 {
		t.Fatalf("ListSegments: n=%d err=%v", len(segs), err)
	}
	if segs[0].TimestampStart > segs[1].TimestampStart {
		t.Fatalf("ListSegments: not ordered by timestamp_start")
	}
	if end, ok, err := s.Segments().LastEnd(ctx, sess.SessionID); err != nil || !ok || end != 3.5 {
		t.Fatalf("LastEnd: end=%v ok=%v err=%v", end, ok, err)
	}
	if _, ok, err := s.Segments().LastEnd(ctx, "session-empty"); err != nil || ok {
		t.Fatalf("LastEnd empty session: ok=%v err=%v", ok, err)
	}
	if n, err := s.Segments().Count(ctx, sess.SessionID); err != nil || n != 2 {
		t.Fatalf("CountSegments: n=%d err=%v", n, err)
	}

	// Completed path: journal commit purges segments and stamps the session
	// in one unit.
	endedAt := time.Now().UTC()
	entry, err := s.Journals().CommitWithPurge(ctx, &model.JournalEntry{
		SessionID:    sess.SessionID,
		UserID:       userID,
		PatientName:  "Maria Gonzalez",
		FamilyID:     familyID,
		VisitDate:    endedAt.Format("2006-01-02"),
		ProviderName: "Dr. Chen",
		VisitType:    "Checkup",
		VisitSummary: "Routine visit.",
		AIConfidence: 0.8,
		AIModel:      "test-model",
	}, store.TerminateRequest{
		SessionID:       sess.SessionID,
		Outcome:         model.SessionCompleted,
		EndedAt:         endedAt,
		DurationSeconds: 60,
	})
	if err != nil {
		t.Fatalf("CommitWithPurge: %v", err)
	}
	if entry.EntryID == "" {
		t.Fatalf("CommitWithPurge: empty entry id")
	}
	if !entry.Durable() {
		t.Fatalf("CommitWithPurge: privacy flags not stamped: %+v", entry)
	}
	if segs, err := s.Segments().List(ctx, sess.SessionID); err != nil || len(segs) != 0 {
		t.Fatalf("segments survived journal commit: n=%d err=%v", len(segs), err)
	}
	done, err := s.Sessions().Get(ctx, sess.SessionID)
	if err != nil || done.Status != model.SessionCompleted {
		t.Fatalf("session after commit: got=%v err=%v", done, err)
	}
	if done.EndedAt == nil || done.TotalSegments != 2 || done.DurationSeconds != 60 {
		t.Fatalf("terminal stamp incomplete: %+v", done)
	}

	// Terminal once: neither a second commit nor a terminate may land.
	if _, err := s.Journals().CommitWithPurge(ctx, entry, store.TerminateRequest{
		SessionID: sess.SessionID, Outcome: model.SessionCompleted, EndedAt: endedAt,
	}); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("second CommitWithPurge: want ErrInvalidState, got %v", err)
	}
	if _, err := s.Sessions().Terminate(ctx, store.TerminateRequest{
		SessionID: sess.SessionID, Outcome: model.SessionFailed, EndedAt: endedAt,
	}); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("Terminate after terminal: want ErrInvalidState, got %v", err)
	}

	// Journal reads
	if got, err := s.Journals().GetBySession(ctx, sess.SessionID); err != nil || got.EntryID != entry.EntryID {
		t.Fatalf("GetBySession: got=%v err=%v", got, err)
	}
	if got, err := s.Journals().GetByID(ctx, entry.EntryID); err != nil || got.VisitSummary != "Routine visit." {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if lst, err := s.Journals().List(ctx, userID, 10); err != nil || len(lst) != 1 {
		t.Fatalf("ListJournal: n=%d err=%v", len(lst), err)
	}
	updated, err := s.Journals().UpdatePersonalNotes(ctx, entry.EntryID, "bring insurance card next time")
	if err != nil || updated.PersonalNotes == nil || *updated.PersonalNotes != "bring insurance card next time" {
		t.Fatalf("UpdatePersonalNotes: got=%v err=%v", updated, err)
	}

	// Failed path: terminate purges segments without a journal entry.
	failed, err := s.Sessions().Create(ctx, &model.Session{
		UserID:         userID,
		PatientName:    "Maria Gonzalez",
		FamilyID:       familyID,
		TargetLanguage: "es",
		Status:         model.SessionActive,
		StartedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSession failed-path: %v", err)
	}
	if _, err := s.Segments().Append(ctx, &model.Segment{
		SessionID:    failed.SessionID,
		Speaker:      "Speaker A",
		SpeakerRole:  model.RoleUnknown,
		OriginalText: "hello",
		TimestampEnd: 1,
		Confidence:   0.5,
		Method:       model.MethodCloudDiarization,
		CreationTime: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("AppendSegment failed-path: %v", err)
	}
	out, err := s.Sessions().Terminate(ctx, store.TerminateRequest{
		SessionID:       failed.SessionID,
		Outcome:         model.SessionFailed,
		EndedAt:         time.Now().UTC(),
		DurationSeconds: 5,
	})
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if out.Status != model.SessionFailed || out.TotalSegments != 1 {
		t.Fatalf("Terminate result: %+v", out)
	}
	if segs, err := s.Segments().List(ctx, failed.SessionID); err != nil || len(segs) != 0 {
		t.Fatalf("segments survived failed termination: n=%d err=%v", len(segs), err)
	}
	if _, err := s.Journals().GetBySession(ctx, failed.SessionID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("failed session grew a journal entry: %v", err)
	}
	// Purge is idempotent on an already-empty session.
	if err := s.Segments().Purge(ctx, failed.SessionID); err != nil {
		t.Fatalf("Purge idempotence: %v", err)
	}

	// Enrollments
	first, err := s.Enrollments().Create(ctx, &model.VoiceEnrollment{
		FamilyID:         familyID,
		SpeakerName:      "Rosa",
		Relationship:     "mother",
		EncryptedProfile: []byte(`{"mean_embedding":[0.1,0.2]}`),
		QualityScore:     0.9,
		SampleCount:      3,
		EnrollmentDate:   time.Now().UTC().Add(-time.Hour),
		Active:           true,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment: %v", err)
	}
	second, err := s.Enrollments().Create(ctx, &model.VoiceEnrollment{
		FamilyID:         familyID,
		SpeakerName:      "Dr. Chen",
		Relationship:     "doctor",
		EncryptedProfile: []byte(`{"mean_embedding":[0.3,0.4]}`),
		QualityScore:     0.8,
		SampleCount:      2,
		EnrollmentDate:   time.Now().UTC(),
		Active:           true,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment second: %v", err)
	}
	if got, err := s.Enrollments().GetByID(ctx, first.EnrollmentID); err != nil || got.SpeakerName != "Rosa" {
		t.Fatalf("GetEnrollment: got=%v err=%v", got, err)
	}
	roster, err := s.Enrollments().ListActiveByFamily(ctx, familyID)
	if err != nil || len(roster) != 2 {
		t.Fatalf("ListActiveByFamily: n=%d err=%v", len(roster), err)
	}
	if roster[0].EnrollmentID != first.EnrollmentID {
		t.Fatalf("ListActiveByFamily: not ordered oldest first")
	}
	if err := s.Enrollments().Deactivate(ctx, second.EnrollmentID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if roster, err := s.Enrollments().ListActiveByFamily(ctx, familyID); err != nil || len(roster) != 1 {
		t.Fatalf("roster after deactivate: n=%d err=%v", len(roster), err)
	}
}
