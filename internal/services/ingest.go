package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/speaker"
	"github.com/terra-femme/MedJournee/internal/store"
)

// AppendSegmentRequest carries one transcribed chunk for an active session.
// Embedding, when present, is resolved against the family's enrollments;
// otherwise SpeakerLabel and RoleHint stand as the diarization result.
type AppendSegmentRequest struct {
	SessionID      string    `json:"sessionId"`
	SpeakerLabel   string    `json:"speakerLabel"`
	RoleHint       string    `json:"roleHint,omitempty"`
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	TimestampStart float64   `json:"timestampStart"`
	TimestampEnd   float64   `json:"timestampEnd"`
	Confidence     float64   `json:"confidence"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

// IngestService accepts conversational segments in order. Appends for one
// session are serialized by the registry lock shared with SessionService so
// ordering holds and nothing lands after termination begins.
type IngestService struct {
	store    store.Store
	resolver *speaker.Resolver
	registry *SessionRegistry
}

func NewIngestService(s store.Store, resolver *speaker.Resolver, registry *SessionRegistry) *IngestService {
	return &IngestService{store: s, resolver: resolver, registry: registry}
}

// Append validates and persists one segment. The session must be active, and
// the segment's start must not precede the previously accepted segment's end;
// out-of-order segments are rejected, never reordered.
func (s *IngestService) Append(ctx context.Context, req AppendSegmentRequest) (*model.Segment, error) {
	if err := validateAppend(req); err != nil {
		return nil, err
	}

	unlock := s.registry.lock(req.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionActive {
		return nil, model.ErrInvalidState
	}

	if lastEnd, ok, err := s.store.Segments().LastEnd(ctx, req.SessionID); err != nil {
		return nil, err
	} else if ok && req.TimestampStart < lastEnd {
		return nil, &model.ValidationError{Field: "timestampStart", Message: "segment start precedes previous segment end"}
	}

	res := s.resolve(ctx, sess.FamilyID, req)

	seg, err := s.store.Segments().Append(ctx, &model.Segment{
		SessionID:            req.SessionID,
		Speaker:              speakerName(req, res),
		SpeakerRole:          res.Role,
		OriginalText:         req.OriginalText,
		TranslatedText:       req.TranslatedText,
		TimestampStart:       req.TimestampStart,
		TimestampEnd:         req.TimestampEnd,
		Confidence:           req.Confidence,
		EnrollmentMatch:      res.EnrollmentMatch,
		EnrollmentConfidence: res.Confidence,
		Method:               res.Method,
		CreationTime:         time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("sessionID", req.SessionID).Msg("failed to append segment")
		return nil, err
	}

	s.registry.Touch(req.SessionID)
	return seg, nil
}

// Sequence returns the full ordered segment sequence for a session. Empty
// after purge.
func (s *IngestService) Sequence(ctx context.Context, sessionID string) ([]*model.Segment, error) {
	if sessionID == "" {
		return nil, &model.ValidationError{Field: "sessionId", Message: "session ID is required"}
	}
	if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.Segments().List(ctx, sessionID)
}

func validateAppend(req AppendSegmentRequest) error {
	if req.SessionID == "" {
		return &model.ValidationError{Field: "sessionId", Message: "session ID is required"}
	}
	if req.OriginalText == "" {
		return &model.ValidationError{Field: "originalText", Message: "original text is required"}
	}
	if req.TimestampEnd < req.TimestampStart {
		return &model.ValidationError{Field: "timestampEnd", Message: "segment end precedes its start"}
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return &model.ValidationError{Field: "confidence", Message: "confidence must be in [0,1]"}
	}
	return nil
}

// resolve attributes the segment to a speaker. Embedding-based resolution
// wins when available; otherwise the upstream diarization hint is kept.
func (s *IngestService) resolve(ctx context.Context, familyID string, req AppendSegmentRequest) model.SpeakerResolution {
	if s.resolver != nil && len(req.Embedding) > 0 {
		return s.resolver.Resolve(ctx, familyID, req.Embedding)
	}
	return model.SpeakerResolution{
		Role:   roleFromHint(req.RoleHint),
		Method: model.MethodCloudDiarization,
	}
}

func roleFromHint(hint string) model.SpeakerRole {
	switch model.SpeakerRole(hint) {
	case model.RoleProvider, model.RoleFamily:
		return model.SpeakerRole(hint)
	default:
		return model.RoleUnknown
	}
}

func speakerName(req AppendSegmentRequest, res model.SpeakerResolution) string {
	if res.SpeakerName != "" {
		return res.SpeakerName
	}
	if req.SpeakerLabel != "" {
		return req.SpeakerLabel
	}
	return string(res.Role)
}
