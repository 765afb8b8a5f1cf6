package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/purge"
	"github.com/terra-femme/MedJournee/internal/speaker"
	"github.com/terra-femme/MedJournee/internal/store"
	"github.com/terra-femme/MedJournee/internal/store/sqlite"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
)

// fakeSummarizer records requests and returns a canned result or error.
type fakeSummarizer struct {
	calls   int
	lastReq synthesizer.TranscriptRequest
	result  *synthesizer.SummaryResult
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, req synthesizer.TranscriptRequest) (*synthesizer.SummaryResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type testEnv struct {
	store    store.Store
	summ     *fakeSummarizer
	sessions *SessionService
	ingest   *IngestService
	enroll   *EnrollmentService
	registry *SessionRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "visits.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	summ := &fakeSummarizer{result: &synthesizer.SummaryResult{
		ProviderName: "Dr. Chen",
		VisitType:    "Checkup",
		MainReason:   "Headache",
		VisitSummary: "Patient reported headaches; advised hydration and rest.",
		Model:        "test-model",
	}}
	registry := NewSessionRegistry()
	synth := synthesizer.NewSynthesizer(st, summ, "test-model")
	purger := purge.NewCoordinator(st)
	resolver := speaker.NewResolver(st.Enrollments(), speaker.PlaintextDecoder{}, 0.7, nil)
	return &testEnv{
		store:    st,
		summ:     summ,
		sessions: NewSessionService(st, synth, purger, registry),
		ingest:   NewIngestService(st, resolver, registry),
		enroll:   NewEnrollmentService(st),
		registry: registry,
	}
}

func startSession(t *testing.T, env *testEnv) *model.Session {
	t.Helper()
	sess, err := env.sessions.Start(context.Background(), StartSessionRequest{
		UserID:         "user-1",
		PatientName:    "Maria Gonzalez",
		FamilyID:       "family-1",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func appendSegment(t *testing.T, env *testEnv, sessionID string, start, end float64) *model.Segment {
	t.Helper()
	seg, err := env.ingest.Append(context.Background(), AppendSegmentRequest{
		SessionID:      sessionID,
		SpeakerLabel:   "Speaker A",
		RoleHint:       string(model.RoleProvider),
		OriginalText:   "How are you feeling today?",
		TranslatedText: "¿Cómo se siente hoy?",
		TimestampStart: start,
		TimestampEnd:   end,
		Confidence:     0.9,
	})
	if err != nil {
		t.Fatalf("Append [%v,%v]: %v", start, end, err)
	}
	return seg
}

func TestSessionStart_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []StartSessionRequest{
		{PatientName: "p", FamilyID: "f", TargetLanguage: "en"},
		{UserID: "u", FamilyID: "f", TargetLanguage: "en"},
		{UserID: "u", PatientName: "p", TargetLanguage: "en"},
		{UserID: "u", PatientName: "p", FamilyID: "f"},
	}
	for i, req := range cases {
		if _, err := env.sessions.Start(ctx, req); !errors.Is(err, model.ErrValidation) {
			t.Errorf("case %d: want validation error, got %v", i, err)
		}
	}
}

func TestSessionEnd_Completed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startSession(t, env)
	appendSegment(t, env, sess.SessionID, 0, 1.5)
	appendSegment(t, env, sess.SessionID, 2, 3.5)

	result, err := env.sessions.End(ctx, sess.SessionID, model.SessionCompleted)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if result.Session.Status != model.SessionCompleted {
		t.Fatalf("status = %s, want completed", result.Session.Status)
	}
	if result.Entry == nil || result.Entry.VisitSummary == "" {
		t.Fatalf("missing journal entry: %+v", result.Entry)
	}
	if !result.Entry.Durable() {
		t.Fatalf("privacy flags not stamped: %+v", result.Entry)
	}
	if result.Session.TotalSegments != 2 || result.Session.EndedAt == nil {
		t.Fatalf("terminal stamp incomplete: %+v", result.Session)
	}

	// Transcript went to the collaborator in order, role-tagged.
	if env.summ.calls != 1 {
		t.Fatalf("summarizer calls = %d, want 1", env.summ.calls)
	}
	if n := len(env.summ.lastReq.Segments); n != 2 {
		t.Fatalf("transcript segments = %d, want 2", n)
	}
	if env.summ.lastReq.Segments[0].Role != string(model.RoleProvider) {
		t.Fatalf("transcript missing role tag: %+v", env.summ.lastReq.Segments[0])
	}

	// Segments are gone.
	segs, err := env.store.Segments().List(ctx, sess.SessionID)
	if err != nil || len(segs) != 0 {
		t.Fatalf("segments after completion: n=%d err=%v", len(segs), err)
	}
}

func TestSessionEnd_TerminalOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startSession(t, env)

	if _, err := env.sessions.End(ctx, sess.SessionID, model.SessionFailed); err != nil {
		t.Fatalf("first End: %v", err)
	}
	if _, err := env.sessions.End(ctx, sess.SessionID, model.SessionCompleted); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("second End: want ErrInvalidState, got %v", err)
	}
}

func TestSessionEnd_OutcomeValidation(t *testing.T) {
	env := newTestEnv(t)
	sess := startSession(t, env)
	if _, err := env.sessions.End(context.Background(), sess.SessionID, model.SessionActive); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want validation error for non-terminal outcome, got %v", err)
	}
}

func TestSessionEnd_SynthesisFailureFallsBackToFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.summ.err = &model.ExternalServiceError{Service: "summarizer", Err: errors.New("unreachable")}

	sess := startSession(t, env)
	appendSegment(t, env, sess.SessionID, 0, 1)

	result, err := env.sessions.End(ctx, sess.SessionID, model.SessionCompleted)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if result.SynthesisErr == nil {
		t.Fatalf("expected synthesis error to be reported")
	}
	if result.Session.Status != model.SessionFailed {
		t.Fatalf("status = %s, want failed", result.Session.Status)
	}
	if result.Entry != nil {
		t.Fatalf("no entry should exist after failed synthesis")
	}
	// Privacy still wins: segments purged, no journal entry.
	if segs, _ := env.store.Segments().List(ctx, sess.SessionID); len(segs) != 0 {
		t.Fatalf("segments survived failed synthesis: %d", len(segs))
	}
	if _, err := env.store.Journals().GetBySession(ctx, sess.SessionID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unexpected journal entry: %v", err)
	}
}

func TestSessionEnd_EmptySessionMinimalEntry(t *testing.T) {
	env := newTestEnv(t)
	sess := startSession(t, env)

	result, err := env.sessions.End(context.Background(), sess.SessionID, model.SessionCompleted)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if env.summ.calls != 0 {
		t.Fatalf("summarizer should not be called for an empty session")
	}
	entry := result.Entry
	if entry == nil || entry.VisitSummary == "" {
		t.Fatalf("minimal entry missing: %+v", entry)
	}
	if entry.AIConfidence != 0.5 || !entry.LowConfidence {
		t.Fatalf("minimal entry confidence: conf=%v low=%v", entry.AIConfidence, entry.LowConfidence)
	}
	if entry.Sections.Symptoms == nil || entry.Sections.Medications == nil {
		t.Fatalf("sections must be empty, not nil")
	}
}

func TestSessionEnd_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.sessions.End(context.Background(), "session-missing", model.SessionCompleted); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
