package speaker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/terra-femme/MedJournee/internal/model"
)

// plaintextProfile mirrors the stored voice-profile document. In production
// the blob is ciphertext and decode goes through the key-management service;
// local mode and tests store the JSON document as-is.
type plaintextProfile struct {
	MeanEmbedding    []float32 `json:"mean_embedding"`
	QualityScore     float64   `json:"quality_score"`
	ConsistencyScore float64   `json:"consistency_score"`
}

// PlaintextDecoder reads unencrypted JSON profiles. Local/testing use only.
type PlaintextDecoder struct{}

func (PlaintextDecoder) Decode(_ context.Context, e *model.VoiceEnrollment) (*VoiceProfile, error) {
	var p plaintextProfile
	if err := json.Unmarshal(e.EncryptedProfile, &p); err != nil {
		return nil, fmt.Errorf("decode voice profile %s: %w", e.EnrollmentID, err)
	}
	if len(p.MeanEmbedding) == 0 {
		return nil, fmt.Errorf("voice profile %s has no embedding", e.EnrollmentID)
	}
	if p.ConsistencyScore == 0 {
		p.ConsistencyScore = 1
	}
	return &VoiceProfile{Mean: p.MeanEmbedding, Quality: p.QualityScore, Consistency: p.ConsistencyScore}, nil
}

// EncodePlaintextProfile serializes a profile document for storage. Used by
// the enrollment endpoint in local mode and by tests.
func EncodePlaintextProfile(mean []float32, quality, consistency float64) ([]byte, error) {
	return json.Marshal(plaintextProfile{MeanEmbedding: mean, QualityScore: quality, ConsistencyScore: consistency})
}
