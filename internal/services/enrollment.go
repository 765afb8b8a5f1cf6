package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/speaker"
	"github.com/terra-femme/MedJournee/internal/store"
)

// EnrollRequest registers a voice template for a family member or provider.
type EnrollRequest struct {
	FamilyID         string    `json:"familyId"`
	SpeakerName      string    `json:"speakerName"`
	Relationship     string    `json:"relationship"`
	MeanEmbedding    []float32 `json:"meanEmbedding"`
	QualityScore     float64   `json:"qualityScore"`
	ConsistencyScore float64   `json:"consistencyScore"`
	SampleCount      int       `json:"sampleCount"`
}

// EnrollmentService manages the voice-enrollment roster.
type EnrollmentService struct {
	store store.Store
}

func NewEnrollmentService(s store.Store) *EnrollmentService {
	return &EnrollmentService{store: s}
}

// Enroll stores a new active voice template. The profile document is encoded
// for the resolver's decoder; production deployments encrypt it upstream.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*model.VoiceEnrollment, error) {
	if req.FamilyID == "" {
		return nil, &model.ValidationError{Field: "familyId", Message: "family ID is required"}
	}
	if req.SpeakerName == "" {
		return nil, &model.ValidationError{Field: "speakerName", Message: "speaker name is required"}
	}
	if len(req.MeanEmbedding) == 0 {
		return nil, &model.ValidationError{Field: "meanEmbedding", Message: "voice embedding is required"}
	}
	if req.QualityScore < 0 || req.QualityScore > 1 {
		return nil, &model.ValidationError{Field: "qualityScore", Message: "quality score must be in [0,1]"}
	}

	profile, err := speaker.EncodePlaintextProfile(req.MeanEmbedding, req.QualityScore, req.ConsistencyScore)
	if err != nil {
		return nil, err
	}

	e, err := s.store.Enrollments().Create(ctx, &model.VoiceEnrollment{
		FamilyID:         req.FamilyID,
		SpeakerName:      req.SpeakerName,
		Relationship:     req.Relationship,
		EncryptedProfile: profile,
		QualityScore:     req.QualityScore,
		SampleCount:      req.SampleCount,
		EnrollmentDate:   time.Now().UTC(),
		Active:           true,
	})
	if err != nil {
		log.Error().Err(err).Str("familyID", req.FamilyID).Msg("failed to create enrollment")
		return nil, err
	}
	log.Info().Str("enrollmentID", e.EnrollmentID).Str("familyID", e.FamilyID).Msg("voice enrollment created")
	return e, nil
}

func (s *EnrollmentService) Get(ctx context.Context, enrollmentID string) (*model.VoiceEnrollment, error) {
	if enrollmentID == "" {
		return nil, &model.ValidationError{Field: "enrollmentId", Message: "enrollment ID is required"}
	}
	return s.store.Enrollments().GetByID(ctx, enrollmentID)
}

// ListActive returns the family's active roster, oldest enrollment first.
func (s *EnrollmentService) ListActive(ctx context.Context, familyID string) ([]*model.VoiceEnrollment, error) {
	if familyID == "" {
		return nil, &model.ValidationError{Field: "familyId", Message: "family ID is required"}
	}
	return s.store.Enrollments().ListActiveByFamily(ctx, familyID)
}

// Deactivate retires an enrollment from matching without deleting it.
func (s *EnrollmentService) Deactivate(ctx context.Context, enrollmentID string) error {
	if enrollmentID == "" {
		return &model.ValidationError{Field: "enrollmentId", Message: "enrollment ID is required"}
	}
	return s.store.Enrollments().Deactivate(ctx, enrollmentID)
}
