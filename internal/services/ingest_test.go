package services

import (
	"context"
	"errors"
	"testing"

	"github.com/terra-femme/MedJournee/internal/model"
)

func TestIngestAppend_MonotonicOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startSession(t, env)

	appendSegment(t, env, sess.SessionID, 0, 1.5)

	// Overlapping start is rejected, not reordered.
	_, err := env.ingest.Append(ctx, AppendSegmentRequest{
		SessionID:      sess.SessionID,
		OriginalText:   "late arrival",
		TimestampStart: 1.0,
		TimestampEnd:   2.0,
		Confidence:     0.9,
	})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("overlapping segment: want validation error, got %v", err)
	}

	// Starting exactly at the previous end is allowed.
	appendSegment(t, env, sess.SessionID, 1.5, 2.5)

	segs, err := env.ingest.Sequence(ctx, sess.SessionID)
	if err != nil || len(segs) != 2 {
		t.Fatalf("Sequence: n=%d err=%v", len(segs), err)
	}
}

func TestIngestAppend_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startSession(t, env)

	cases := []AppendSegmentRequest{
		// missing text, end before start, confidence out of range, missing session id
		{SessionID: sess.SessionID, TimestampEnd: 1, Confidence: 0.9},
		{SessionID: sess.SessionID, OriginalText: "x", TimestampStart: 2, TimestampEnd: 1, Confidence: 0.9},
		{SessionID: sess.SessionID, OriginalText: "x", TimestampEnd: 1, Confidence: 1.5},
		{OriginalText: "x", TimestampEnd: 1, Confidence: 0.9},
	}
	for i, req := range cases {
		if _, err := env.ingest.Append(ctx, req); !errors.Is(err, model.ErrValidation) {
			t.Errorf("case %d: want validation error, got %v", i, err)
		}
	}
}

func TestIngestAppend_AfterTermination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startSession(t, env)

	if _, err := env.sessions.End(ctx, sess.SessionID, model.SessionFailed); err != nil {
		t.Fatalf("End: %v", err)
	}
	_, err := env.ingest.Append(ctx, AppendSegmentRequest{
		SessionID:    sess.SessionID,
		OriginalText: "too late",
		TimestampEnd: 1,
		Confidence:   0.9,
	})
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("append after termination: want ErrInvalidState, got %v", err)
	}
}

func TestIngestAppend_EmbeddingResolution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	voice := []float32{0.6, 0.8, 0}
	if _, err := env.enroll.Enroll(ctx, EnrollRequest{
		FamilyID:         "family-1",
		SpeakerName:      "Dr. Chen",
		Relationship:     "doctor",
		MeanEmbedding:    voice,
		QualityScore:     0.95,
		ConsistencyScore: 0.98,
		SampleCount:      3,
	}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	sess := startSession(t, env)
	seg, err := env.ingest.Append(ctx, AppendSegmentRequest{
		SessionID:    sess.SessionID,
		OriginalText: "Take this twice a day.",
		TimestampEnd: 2,
		Confidence:   0.9,
		Embedding:    voice,
	})
	if err != nil {
		t.Fatalf("Append with embedding: %v", err)
	}
	if seg.SpeakerRole != model.RoleProvider || !seg.EnrollmentMatch {
		t.Fatalf("resolution: role=%s match=%v", seg.SpeakerRole, seg.EnrollmentMatch)
	}
	if seg.Speaker != "Dr. Chen" {
		t.Fatalf("speaker = %q, want enrolled name", seg.Speaker)
	}
	if seg.Method != model.MethodEnrollmentMatch {
		t.Fatalf("method = %q", seg.Method)
	}
}

func TestIngestAppend_RoleHintFallback(t *testing.T) {
	env := newTestEnv(t)
	sess := startSession(t, env)

	seg, err := env.ingest.Append(context.Background(), AppendSegmentRequest{
		SessionID:    sess.SessionID,
		SpeakerLabel: "Speaker B",
		RoleHint:     string(model.RoleFamily),
		OriginalText: "Me duele la cabeza.",
		TimestampEnd: 1,
		Confidence:   0.8,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if seg.SpeakerRole != model.RoleFamily || seg.EnrollmentMatch {
		t.Fatalf("hint fallback: role=%s match=%v", seg.SpeakerRole, seg.EnrollmentMatch)
	}
	if seg.Method != model.MethodCloudDiarization {
		t.Fatalf("method = %q", seg.Method)
	}
}
