package watchdog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/platform/logger"
	"github.com/terra-femme/MedJournee/internal/purge"
	"github.com/terra-femme/MedJournee/internal/services"
	"github.com/terra-femme/MedJournee/internal/store"
	"github.com/terra-femme/MedJournee/internal/store/sqlite"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
)

type noopSummarizer struct{}

func (noopSummarizer) Summarize(context.Context, synthesizer.TranscriptRequest) (*synthesizer.SummaryResult, error) {
	return &synthesizer.SummaryResult{VisitSummary: "ok"}, nil
}

func newFixture(t *testing.T) (store.Store, *services.SessionService, *services.SessionRegistry) {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "visits.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	registry := services.NewSessionRegistry()
	synth := synthesizer.NewSynthesizer(st, noopSummarizer{}, "test-model")
	sessions := services.NewSessionService(st, synth, purge.NewCoordinator(st), registry)
	return st, sessions, registry
}

func TestWatchdog_EndsIdleSessionAsFailed(t *testing.T) {
	st, sessions, registry := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := sessions.Start(ctx, services.StartSessionRequest{
		UserID:         "user-1",
		PatientName:    "Maria Gonzalez",
		FamilyID:       "family-1",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	wd := New(sessions, registry, Config{Window: time.Nanosecond, Interval: 5 * time.Millisecond}, logger.New("watchdog-test"))
	go func() { _ = wd.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := st.Sessions().Get(ctx, sess.SessionID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status == model.SessionFailed {
			if got.EndedAt == nil {
				t.Fatalf("terminal stamp missing: %+v", got)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session was not auto-terminated")
}

func TestWatchdog_LeavesActiveSessionsAlone(t *testing.T) {
	st, sessions, registry := newFixture(t)
	ctx := context.Background()

	sess, err := sessions.Start(ctx, services.StartSessionRequest{
		UserID:         "user-1",
		PatientName:    "Maria Gonzalez",
		FamilyID:       "family-1",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A generous window means a fresh session is never idle.
	wd := New(sessions, registry, Config{Window: time.Hour, Interval: time.Millisecond}, logger.New("watchdog-test"))
	runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_ = wd.Run(runCtx)

	got, err := st.Sessions().Get(ctx, sess.SessionID)
	if err != nil || got.Status != model.SessionActive {
		t.Fatalf("session touched by watchdog: %+v err=%v", got, err)
	}
}

func TestRegistryIdleTracking(t *testing.T) {
	registry := services.NewSessionRegistry()
	registry.Track("session-1")

	if ids := registry.Idle(time.Hour); len(ids) != 0 {
		t.Fatalf("fresh session reported idle: %v", ids)
	}
	time.Sleep(2 * time.Millisecond)
	if ids := registry.Idle(time.Nanosecond); len(ids) != 1 || ids[0] != "session-1" {
		t.Fatalf("idle detection: %v", ids)
	}
	registry.Forget("session-1")
	if ids := registry.Idle(time.Nanosecond); len(ids) != 0 {
		t.Fatalf("forgotten session still tracked: %v", ids)
	}
}
