package model

import "time"

// SessionStatus is the lifecycle state of a visit session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// SpeakerRole classifies who is talking in a segment.
type SpeakerRole string

const (
	RoleProvider SpeakerRole = "Healthcare Provider"
	RoleFamily   SpeakerRole = "Patient/Family"
	RoleUnknown  SpeakerRole = "Unknown"
)

// Resolution method tags recorded on segments.
const (
	MethodEnrollmentMatch  = "voice_enrollment_match"
	MethodCloudDiarization = "cloud_diarization"
)

// Session is one recorded medical visit from start to termination.
// Conversational content never lives here; only metadata survives purge.
type Session struct {
	SessionID       string        `json:"sessionId"`
	UserID          string        `json:"userId"`
	PatientName     string        `json:"patientName"`
	FamilyID        string        `json:"familyId"`
	TargetLanguage  string        `json:"targetLanguage"`
	Status          SessionStatus `json:"status"`
	StartedAt       time.Time     `json:"startedAt"`
	EndedAt         *time.Time    `json:"endedAt,omitempty"`
	TotalSegments   int           `json:"totalSegments"`
	DurationSeconds int           `json:"durationSeconds"`
}

// Segment is one timed, speaker-attributed, transcribed-and-translated chunk
// of conversation. Immutable once written; deleted in full at purge.
type Segment struct {
	SegmentID            string      `json:"segmentId"`
	SessionID            string      `json:"sessionId"`
	Speaker              string      `json:"speaker"`
	SpeakerRole          SpeakerRole `json:"speakerRole"`
	OriginalText         string      `json:"originalText"`
	TranslatedText       string      `json:"translatedText"`
	TimestampStart       float64     `json:"timestampStart"`
	TimestampEnd         float64     `json:"timestampEnd"`
	Confidence           float64     `json:"confidence"`
	EnrollmentMatch      bool        `json:"enrollmentMatch"`
	EnrollmentConfidence float64     `json:"enrollmentConfidence"`
	Method               string      `json:"method"`
	CreationTime         time.Time   `json:"creationTime"`
}

// SpeakerResolution is the outcome of matching an acoustic embedding against
// a family's enrolled voices.
type SpeakerResolution struct {
	Role            SpeakerRole `json:"role"`
	SpeakerName     string      `json:"speakerName,omitempty"`
	EnrollmentMatch bool        `json:"enrollmentMatch"`
	Confidence      float64     `json:"confidence"`
	Method          string      `json:"method"`
}

// VoiceEnrollment is a stored voice template for a known speaker within a
// family. The profile blob is ciphertext; this core never decrypts it.
type VoiceEnrollment struct {
	EnrollmentID     string    `json:"enrollmentId"`
	FamilyID         string    `json:"familyId"`
	SpeakerName      string    `json:"speakerName"`
	Relationship     string    `json:"relationship"`
	EncryptedProfile []byte    `json:"-"`
	QualityScore     float64   `json:"qualityScore"`
	SampleCount      int       `json:"sampleCount"`
	EnrollmentDate   time.Time `json:"enrollmentDate"`
	Active           bool      `json:"active"`
}

// Typed records for the structured clinical sections. The original schema
// stored these as opaque JSON strings; they are first-class types here so the
// synthesizer and downstream consumers get structural guarantees.

type SymptomRecord struct {
	Description string `json:"description"`
}

type DiagnosisRecord struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type TreatmentRecord struct {
	Description string `json:"description"`
}

type VitalSignRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type TestResultRecord struct {
	TestName string `json:"testName"`
	Result   string `json:"result"`
	Date     string `json:"date,omitempty"`
}

type MedicationRecord struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

type InstructionRecord struct {
	Instruction string `json:"instruction"`
}

type AppointmentRecord struct {
	Type     string `json:"type"`
	Date     string `json:"date,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type ActionItemRecord struct {
	Description string `json:"description"`
}

type QuestionRecord struct {
	Question string `json:"question"`
}

type ConcernRecord struct {
	Concern string `json:"concern"`
}

type TermExplanation struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
}

// ClinicalSections groups the twelve structured sections of a journal entry.
// List sections are never nil after synthesis; missing data becomes an empty
// slice so consumers can range without guards.
type ClinicalSections struct {
	Symptoms             []SymptomRecord     `json:"symptoms"`
	Diagnoses            []DiagnosisRecord   `json:"diagnoses"`
	Treatments           []TreatmentRecord   `json:"treatments"`
	VitalSigns           []VitalSignRecord   `json:"vitalSigns"`
	TestResults          []TestResultRecord  `json:"testResults"`
	Medications          []MedicationRecord  `json:"medications"`
	FollowUpInstructions []InstructionRecord `json:"followUpInstructions"`
	NextAppointments     []AppointmentRecord `json:"nextAppointments"`
	ActionItems          []ActionItemRecord  `json:"actionItems"`
	PatientQuestions     []QuestionRecord    `json:"patientQuestions"`
	FamilyConcerns       []ConcernRecord     `json:"familyConcerns"`
	TermsExplained       []TermExplanation   `json:"medicalTermsExplained"`
}

// JournalEntry is the single permanent, structured summary for a completed
// session. At most one exists per session. Only PersonalNotes is mutable
// after creation.
type JournalEntry struct {
	EntryID     string `json:"entryId"`
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	PatientName string `json:"patientName"`
	FamilyID    string `json:"familyId"`

	VisitDate    string `json:"visitDate"`
	ProviderName string `json:"providerName"`
	VisitType    string `json:"visitType"`
	MainReason   string `json:"mainReason"`

	Sections      ClinicalSections `json:"sections"`
	FamilySummary string           `json:"familySummary"`
	VisitSummary  string           `json:"visitSummary"`

	AIConfidence     float64 `json:"aiConfidence"`
	AIModel          string  `json:"aiModel"`
	ProcessingMethod string  `json:"processingMethod"`
	LowConfidence    bool    `json:"lowConfidence,omitempty"`

	ConsentGiven       bool `json:"consentGiven"`
	AudioDeleted       bool `json:"audioDeleted"`
	TranscriptsDeleted bool `json:"transcriptsDeleted"`

	PersonalNotes *string   `json:"personalNotes,omitempty"`
	CreationTime  time.Time `json:"creationTime"`
	UpdateTime    time.Time `json:"updateTime"`
}

// Durable reports whether all privacy flags required for a permanent entry
// are set.
func (j *JournalEntry) Durable() bool {
	return j.ConsentGiven && j.AudioDeleted && j.TranscriptsDeleted
}
