// Package speaker resolves acoustic embeddings against a family's enrolled
// voice templates. Resolution is a pure function over (roster, embedding):
// it holds no mutable state and may run concurrently across sessions.
package speaker

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
)

// VoiceProfile is the decoded form of an enrollment's encrypted blob,
// produced by the external key-management collaborator.
type VoiceProfile struct {
	Mean        []float32
	Quality     float64
	Consistency float64
}

// ProfileDecoder turns an opaque encrypted voice profile into comparable
// features. Implemented by the key-management collaborator; this core never
// sees raw key material.
type ProfileDecoder interface {
	Decode(ctx context.Context, e *model.VoiceEnrollment) (*VoiceProfile, error)
}

// ScoreFunc computes similarity between an embedding and a decoded profile.
// Implementations must be monotonic and bounded in [0,1].
type ScoreFunc func(embedding []float32, profile *VoiceProfile) float64

// Resolver assigns speaker roles using the enrollment roster for a family.
type Resolver struct {
	enrollments store.Enrollments
	decoder     ProfileDecoder
	score       ScoreFunc
	threshold   float64
}

// NewResolver builds a resolver with the given match threshold. A nil score
// function selects the default quality-weighted cosine similarity.
func NewResolver(enrollments store.Enrollments, decoder ProfileDecoder, threshold float64, score ScoreFunc) *Resolver {
	if score == nil {
		score = WeightedCosine
	}
	return &Resolver{enrollments: enrollments, decoder: decoder, score: score, threshold: threshold}
}

// Resolve matches the embedding against every active enrollment for the
// family and returns the best role assignment. A match requires the best
// score to strictly exceed the threshold. It never fails: resolver or
// roster problems degrade to role Unknown so conversational capture is never
// lost to a speaker-ID problem. Ties break toward the oldest enrollment.
func (r *Resolver) Resolve(ctx context.Context, familyID string, embedding []float32) model.SpeakerResolution {
	unknown := model.SpeakerResolution{
		Role:   model.RoleUnknown,
		Method: model.MethodCloudDiarization,
	}

	roster, err := r.enrollments.ListActiveByFamily(ctx, familyID)
	if err != nil {
		log.Warn().Err(err).Str("familyID", familyID).Msg("enrollment roster unavailable, resolving as Unknown")
		return unknown
	}
	if len(roster) == 0 {
		return unknown
	}

	var best *model.VoiceEnrollment
	bestScore := 0.0
	for _, e := range roster {
		profile, err := r.decoder.Decode(ctx, e)
		if err != nil {
			log.Warn().Err(err).Str("enrollmentID", e.EnrollmentID).Msg("profile decode failed, skipping enrollment")
			continue
		}
		s := r.score(embedding, profile)
		// Roster is ordered oldest-first; strict > keeps the earliest
		// enrollment on equal scores.
		if s > bestScore {
			bestScore = s
			best = e
		}
	}

	if best == nil || bestScore <= r.threshold {
		unknown.Confidence = bestScore
		return unknown
	}

	return model.SpeakerResolution{
		Role:            roleForRelationship(best.Relationship),
		SpeakerName:     best.SpeakerName,
		EnrollmentMatch: true,
		Confidence:      bestScore,
		Method:          model.MethodEnrollmentMatch,
	}
}

// roleForRelationship maps an enrollment's relationship label to a speaker
// role. Provider-tagged relationships map to Healthcare Provider; everything
// else enrolled is Patient/Family.
func roleForRelationship(relationship string) model.SpeakerRole {
	switch strings.ToLower(strings.TrimSpace(relationship)) {
	case "doctor", "physician", "nurse", "provider", "healthcare_provider", "specialist":
		return model.RoleProvider
	default:
		return model.RoleFamily
	}
}

// WeightedCosine is the default scorer: cosine similarity weighted by the
// profile's quality and consistency scores, clamped to [0,1].
func WeightedCosine(embedding []float32, profile *VoiceProfile) float64 {
	sim := cosine(embedding, profile.Mean)
	weighted := sim * profile.Quality * profile.Consistency
	return math.Max(0, math.Min(1, weighted))
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
