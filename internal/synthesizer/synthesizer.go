// Package synthesizer turns an ordered segment sequence into the single
// structured journal entry for a session, via the external summarization
// collaborator.
package synthesizer

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
)

// TranscriptSegment is one role-tagged line of the transcript submitted for
// summarization.
type TranscriptSegment struct {
	Speaker        string  `json:"speaker"`
	Role           string  `json:"role"`
	OriginalText   string  `json:"original_text"`
	TranslatedText string  `json:"translated_text,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
}

// TranscriptRequest is the full ordered transcript for one session.
type TranscriptRequest struct {
	SessionID      string              `json:"session_id"`
	PatientName    string              `json:"patient_name"`
	TargetLanguage string              `json:"target_language"`
	Segments       []TranscriptSegment `json:"segments"`
}

// SummaryResult is the structured payload returned by the summarization
// collaborator.
type SummaryResult struct {
	ProviderName  string                 `json:"provider_name"`
	VisitType     string                 `json:"visit_type"`
	MainReason    string                 `json:"main_reason"`
	Sections      model.ClinicalSections `json:"sections"`
	FamilySummary string                 `json:"family_summary"`
	VisitSummary  string                 `json:"visit_summary"`
	Confidence    *float64               `json:"confidence,omitempty"`
	Model         string                 `json:"model"`
}

// Summarizer is the external summarization collaborator contract.
type Summarizer interface {
	Summarize(ctx context.Context, req TranscriptRequest) (*SummaryResult, error)
}

// Fallback values applied when the collaborator omits data or when a session
// ends with no conversation at all.
const (
	fallbackVisitSummary = "Medical visit completed."
	fallbackVisitType    = "Medical Visit"
	fallbackProvider     = "Healthcare Provider"
	defaultConfidence    = 0.5
	processingMethod     = "ai_medical_summarization"
	minimalMethod        = "minimal_entry"
)

// Synthesizer builds journal entries. It never persists them itself; the
// purge coordinator commits the entry atomically with the segment purge.
type Synthesizer struct {
	store   store.Store
	summ    Summarizer
	aiModel string
}

func NewSynthesizer(s store.Store, summ Summarizer, aiModel string) *Synthesizer {
	return &Synthesizer{store: s, summ: summ, aiModel: aiModel}
}

// Synthesize produces the journal entry for a session that is transitioning
// to completed. Exactly one entry may exist per session: if one was already
// committed, it is returned unchanged. An empty segment sequence yields a
// minimal entry rather than an error. Collaborator failures surface as
// ExternalServiceError and leave nothing written.
func (s *Synthesizer) Synthesize(ctx context.Context, sessionID string) (*model.JournalEntry, error) {
	if existing, err := s.store.Journals().GetBySession(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	segs, err := s.store.Segments().List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entry := &model.JournalEntry{
		SessionID:   sess.SessionID,
		UserID:      sess.UserID,
		PatientName: sess.PatientName,
		FamilyID:    sess.FamilyID,
		VisitDate:   sess.StartedAt.UTC().Format("2006-01-02"),
		AIModel:     s.aiModel,
	}

	if len(segs) == 0 {
		// Zero-segment completion is valid: a minimal entry, flagged
		// low-confidence.
		entry.ProviderName = fallbackProvider
		entry.VisitType = fallbackVisitType
		entry.VisitSummary = fallbackVisitSummary
		entry.FamilySummary = fallbackVisitSummary
		entry.AIConfidence = defaultConfidence
		entry.LowConfidence = true
		entry.ProcessingMethod = minimalMethod
		normalizeSections(&entry.Sections)
		return entry, nil
	}

	result, err := s.summ.Summarize(ctx, buildTranscript(sess, segs))
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("summarization failed")
		return nil, err
	}

	applySummary(entry, result)
	if entry.AIConfidence == 0 {
		if result.Confidence != nil {
			entry.AIConfidence = *result.Confidence
		} else {
			entry.AIConfidence = meanConfidence(segs)
		}
	}
	return entry, nil
}

func buildTranscript(sess *model.Session, segs []*model.Segment) TranscriptRequest {
	req := TranscriptRequest{
		SessionID:      sess.SessionID,
		PatientName:    sess.PatientName,
		TargetLanguage: sess.TargetLanguage,
		Segments:       make([]TranscriptSegment, 0, len(segs)),
	}
	for _, g := range segs {
		req.Segments = append(req.Segments, TranscriptSegment{
			Speaker:        g.Speaker,
			Role:           string(g.SpeakerRole),
			OriginalText:   g.OriginalText,
			TranslatedText: g.TranslatedText,
			Start:          g.TimestampStart,
			End:            g.TimestampEnd,
		})
	}
	return req
}

// applySummary maps the collaborator payload onto the entry, enforcing the
// structural contract: narrative summary non-empty, list sections non-nil.
func applySummary(entry *model.JournalEntry, r *SummaryResult) {
	entry.ProviderName = r.ProviderName
	if entry.ProviderName == "" {
		entry.ProviderName = fallbackProvider
	}
	entry.VisitType = r.VisitType
	if entry.VisitType == "" {
		entry.VisitType = fallbackVisitType
	}
	entry.MainReason = r.MainReason
	entry.Sections = r.Sections
	normalizeSections(&entry.Sections)
	entry.VisitSummary = r.VisitSummary
	if entry.VisitSummary == "" {
		entry.VisitSummary = fallbackVisitSummary
	}
	entry.FamilySummary = r.FamilySummary
	if entry.FamilySummary == "" {
		entry.FamilySummary = entry.VisitSummary
	}
	if r.Model != "" {
		entry.AIModel = r.Model
	}
	if r.Confidence != nil {
		entry.AIConfidence = *r.Confidence
	}
	entry.ProcessingMethod = processingMethod
}

func meanConfidence(segs []*model.Segment) float64 {
	if len(segs) == 0 {
		return defaultConfidence
	}
	var sum float64
	for _, g := range segs {
		sum += g.Confidence
	}
	return sum / float64(len(segs))
}

// normalizeSections replaces nil list sections with empty slices so the
// persisted entry never carries nulls.
func normalizeSections(s *model.ClinicalSections) {
	if s.Symptoms == nil {
		s.Symptoms = []model.SymptomRecord{}
	}
	if s.Diagnoses == nil {
		s.Diagnoses = []model.DiagnosisRecord{}
	}
	if s.Treatments == nil {
		s.Treatments = []model.TreatmentRecord{}
	}
	if s.VitalSigns == nil {
		s.VitalSigns = []model.VitalSignRecord{}
	}
	if s.TestResults == nil {
		s.TestResults = []model.TestResultRecord{}
	}
	if s.Medications == nil {
		s.Medications = []model.MedicationRecord{}
	}
	if s.FollowUpInstructions == nil {
		s.FollowUpInstructions = []model.InstructionRecord{}
	}
	if s.NextAppointments == nil {
		s.NextAppointments = []model.AppointmentRecord{}
	}
	if s.ActionItems == nil {
		s.ActionItems = []model.ActionItemRecord{}
	}
	if s.PatientQuestions == nil {
		s.PatientQuestions = []model.QuestionRecord{}
	}
	if s.FamilyConcerns == nil {
		s.FamilyConcerns = []model.ConcernRecord{}
	}
	if s.TermsExplained == nil {
		s.TermsExplained = []model.TermExplanation{}
	}
}
