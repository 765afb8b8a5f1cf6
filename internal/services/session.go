package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/purge"
	"github.com/terra-femme/MedJournee/internal/store"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
)

// StartSessionRequest carries the identity fields for a new visit session.
type StartSessionRequest struct {
	UserID         string `json:"userId"`
	PatientName    string `json:"patientName"`
	FamilyID       string `json:"familyId"`
	TargetLanguage string `json:"targetLanguage"`
}

// EndResult reports how a termination settled. Entry is nil on the failed
// path. SynthesisErr is set when the session was asked to complete but the
// summarization collaborator could not deliver, in which case the session was
// terminated failed and its segments purged without a journal.
type EndResult struct {
	Session      *model.Session
	Entry        *model.JournalEntry
	SynthesisErr error
}

// SessionService owns the session lifecycle. It is the only component that
// transitions session state; termination runs under the per-session ordering
// lock shared with ingestion.
type SessionService struct {
	store    store.Store
	synth    *synthesizer.Synthesizer
	purger   *purge.Coordinator
	registry *SessionRegistry
}

func NewSessionService(s store.Store, synth *synthesizer.Synthesizer, purger *purge.Coordinator, registry *SessionRegistry) *SessionService {
	return &SessionService{store: s, synth: synth, purger: purger, registry: registry}
}

// Start creates an active session.
func (s *SessionService) Start(ctx context.Context, req StartSessionRequest) (*model.Session, error) {
	if req.UserID == "" {
		return nil, &model.ValidationError{Field: "userId", Message: "user ID is required"}
	}
	if req.PatientName == "" {
		return nil, &model.ValidationError{Field: "patientName", Message: "patient name is required"}
	}
	if req.FamilyID == "" {
		return nil, &model.ValidationError{Field: "familyId", Message: "family ID is required"}
	}
	if req.TargetLanguage == "" {
		return nil, &model.ValidationError{Field: "targetLanguage", Message: "target language is required"}
	}

	sess, err := s.store.Sessions().Create(ctx, &model.Session{
		UserID:         req.UserID,
		PatientName:    req.PatientName,
		FamilyID:       req.FamilyID,
		TargetLanguage: req.TargetLanguage,
		Status:         model.SessionActive,
		StartedAt:      time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("userID", req.UserID).Msg("failed to create session")
		return nil, err
	}

	s.registry.Track(sess.SessionID)
	log.Info().Str("sessionID", sess.SessionID).Str("familyID", sess.FamilyID).Msg("session started")
	return sess, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, &model.ValidationError{Field: "sessionId", Message: "session ID is required"}
	}
	return s.store.Sessions().Get(ctx, sessionID)
}

// List returns all sessions owned by a user, newest first.
func (s *SessionService) List(ctx context.Context, userID string) ([]*model.Session, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "userId", Message: "user ID is required"}
	}
	return s.store.Sessions().List(ctx, userID)
}

// End terminates a session with the requested outcome. The transition is
// terminal-once: ending an already-terminal session returns ErrInvalidState.
// A completed outcome synthesizes the journal entry and commits it atomically
// with the segment purge; if synthesis fails the session is terminated failed
// instead and segments are still purged, reported via EndResult.SynthesisErr.
func (s *SessionService) End(ctx context.Context, sessionID string, outcome model.SessionStatus) (*EndResult, error) {
	if sessionID == "" {
		return nil, &model.ValidationError{Field: "sessionId", Message: "session ID is required"}
	}
	if !outcome.Terminal() {
		return nil, &model.ValidationError{Field: "outcome", Message: "outcome must be completed or failed"}
	}

	unlock := s.registry.lock(sessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, model.ErrInvalidState
	}

	endedAt := time.Now().UTC()
	req := store.TerminateRequest{
		SessionID:       sessionID,
		Outcome:         outcome,
		EndedAt:         endedAt,
		DurationSeconds: int(endedAt.Sub(sess.StartedAt).Seconds()),
	}

	if outcome == model.SessionFailed {
		failed, err := s.purger.CommitFailed(ctx, req)
		if err != nil {
			return nil, err
		}
		s.registry.Forget(sessionID)
		return &EndResult{Session: failed}, nil
	}

	entry, synthErr := s.synth.Synthesize(ctx, sessionID)
	if synthErr != nil {
		log.Warn().Err(synthErr).Str("sessionID", sessionID).Msg("synthesis failed, terminating session as failed")
		failed, err := s.purger.CommitFailed(ctx, req)
		if err != nil {
			return nil, err
		}
		s.registry.Forget(sessionID)
		return &EndResult{Session: failed, SynthesisErr: synthErr}, nil
	}

	committed, err := s.purger.CommitCompleted(ctx, entry, req)
	if err != nil {
		return nil, err
	}
	s.registry.Forget(sessionID)

	sess, err = s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &EndResult{Session: sess, Entry: committed}, nil
}
