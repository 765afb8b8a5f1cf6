package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
)

// New opens (or creates) a SQLite-backed store at path and applies the schema.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wires a store over an existing connection (used by tests).
func NewWithDB(db *sql.DB) store.Store { return &liteStore{db: db} }

type liteStore struct{ db *sql.DB }

func (s *liteStore) Sessions() store.Sessions       { return &sessions{db: s.db} }
func (s *liteStore) Segments() store.Segments       { return &segments{db: s.db} }
func (s *liteStore) Journals() store.Journals       { return &journals{db: s.db} }
func (s *liteStore) Enrollments() store.Enrollments { return &enrollments{db: s.db} }

func (s *liteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Sessions ---

type sessions struct{ db *sql.DB }

func (s *sessions) Create(ctx context.Context, m *model.Session) (*model.Session, error) {
	id := m.SessionID
	if id == "" {
		id = "session-" + uuid.New().String()
	}
	now := time.Now().UTC()
	started := m.StartedAt
	if started.IsZero() {
		started = now
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO live_sessions (session_id, user_id, patient_name, family_id, target_language, session_status, started_at, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, id, m.UserID, m.PatientName, m.FamilyID, m.TargetLanguage, string(model.SessionActive), started, now, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.SessionID = id
	out.Status = model.SessionActive
	out.StartedAt = started
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT session_id, user_id, patient_name, family_id, target_language, session_status, started_at, ended_at, total_segments, duration_seconds
        FROM live_sessions WHERE session_id = ?
    `, sessionID)
	return scanSession(row)
}

func (s *sessions) List(ctx context.Context, userID string) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT session_id, user_id, patient_name, family_id, target_language, session_status, started_at, ended_at, total_segments, duration_seconds
        FROM live_sessions WHERE user_id = ? ORDER BY started_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Session
	for rows.Next() {
		m, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sessions) Terminate(ctx context.Context, req store.TerminateRequest) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT session_status FROM live_sessions WHERE session_id = ?`, req.SessionID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if model.SessionStatus(status).Terminal() {
		return nil, model.ErrInvalidState
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_segments WHERE session_id = ?`, req.SessionID).Scan(&total); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_segments WHERE session_id = ?`, req.SessionID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE live_sessions
        SET session_status = ?, ended_at = ?, duration_seconds = ?, total_segments = ?, updated_at = ?
        WHERE session_id = ? AND session_status = ?
    `, string(req.Outcome), req.EndedAt, req.DurationSeconds, total, time.Now().UTC(), req.SessionID, string(model.SessionActive)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Get(ctx, req.SessionID)
}

func scanSession(row interface{ Scan(...interface{}) error }) (*model.Session, error) {
	var m model.Session
	var status string
	var ended sql.NullTime
	if err := row.Scan(&m.SessionID, &m.UserID, &m.PatientName, &m.FamilyID, &m.TargetLanguage,
		&status, &m.StartedAt, &ended, &m.TotalSegments, &m.DurationSeconds); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	m.Status = model.SessionStatus(status)
	if ended.Valid {
		t := ended.Time
		m.EndedAt = &t
	}
	return &m, nil
}

// --- Segments ---

type segments struct{ db *sql.DB }

func (g *segments) Append(ctx context.Context, seg *model.Segment) (*model.Segment, error) {
	id := seg.SegmentID
	if id == "" {
		id = "seg-" + uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := g.db.ExecContext(ctx, `
        INSERT INTO session_segments
        (segment_id, session_id, speaker, speaker_role, original_text, translated_text,
         timestamp_start, timestamp_end, confidence, enrollment_match, enrollment_confidence, method, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, id, seg.SessionID, seg.Speaker, string(seg.SpeakerRole), seg.OriginalText, seg.TranslatedText,
		seg.TimestampStart, seg.TimestampEnd, seg.Confidence, seg.EnrollmentMatch, seg.EnrollmentConfidence, seg.Method, now)
	if err != nil {
		return nil, err
	}
	out := *seg
	out.SegmentID = id
	out.CreationTime = now
	return &out, nil
}

func (g *segments) List(ctx context.Context, sessionID string) ([]*model.Segment, error) {
	rows, err := g.db.QueryContext(ctx, `
        SELECT segment_id, session_id, speaker, speaker_role, original_text, translated_text,
               timestamp_start, timestamp_end, confidence, enrollment_match, enrollment_confidence, method, created_at
        FROM session_segments WHERE session_id = ? ORDER BY timestamp_start ASC
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Segment
	for rows.Next() {
		var m model.Segment
		var role string
		if err := rows.Scan(&m.SegmentID, &m.SessionID, &m.Speaker, &role, &m.OriginalText, &m.TranslatedText,
			&m.TimestampStart, &m.TimestampEnd, &m.Confidence, &m.EnrollmentMatch, &m.EnrollmentConfidence, &m.Method, &m.CreationTime); err != nil {
			return nil, err
		}
		m.SpeakerRole = model.SpeakerRole(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (g *segments) LastEnd(ctx context.Context, sessionID string) (float64, bool, error) {
	var end sql.NullFloat64
	err := g.db.QueryRowContext(ctx, `SELECT MAX(timestamp_end) FROM session_segments WHERE session_id = ?`, sessionID).Scan(&end)
	if err != nil {
		return 0, false, err
	}
	if !end.Valid {
		return 0, false, nil
	}
	return end.Float64, true, nil
}

func (g *segments) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_segments WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

func (g *segments) Purge(ctx context.Context, sessionID string) error {
	_, err := g.db.ExecContext(ctx, `DELETE FROM session_segments WHERE session_id = ?`, sessionID)
	return err
}

// --- Journals ---

type journals struct{ db *sql.DB }

func (j *journals) CommitWithPurge(ctx context.Context, entry *model.JournalEntry, req store.TerminateRequest) (*model.JournalEntry, error) {
	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT session_status FROM live_sessions WHERE session_id = ?`, req.SessionID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if model.SessionStatus(status).Terminal() {
		return nil, model.ErrInvalidState
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM journal_entries WHERE session_id = ?`, req.SessionID).Scan(&exists)
	if err == nil {
		return nil, model.ErrInvalidState
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	id := entry.EntryID
	if id == "" {
		id = "entry-" + uuid.New().String()
	}
	now := time.Now().UTC()
	cols, err := marshalSections(entry.Sections)
	if err != nil {
		return nil, err
	}

	// Privacy flags are stamped here: the journal only ever commits alongside
	// the segment delete.
	_, err = tx.ExecContext(ctx, `
        INSERT INTO journal_entries (
            entry_id, session_id, user_id, patient_name, family_id,
            visit_date, provider_name, visit_type, main_reason,
            symptoms, diagnoses, treatments, vital_signs, test_results,
            medications, follow_up_instructions, next_appointments, action_items,
            patient_questions, family_concerns, family_summary,
            medical_terms_explained, visit_summary,
            ai_confidence, ai_model, processing_method, low_confidence,
            consent_given, audio_deleted, transcripts_deleted,
            created_at, updated_at
        ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, id, entry.SessionID, entry.UserID, entry.PatientName, entry.FamilyID,
		entry.VisitDate, entry.ProviderName, entry.VisitType, entry.MainReason,
		cols.symptoms, cols.diagnoses, cols.treatments, cols.vitalSigns, cols.testResults,
		cols.medications, cols.instructions, cols.appointments, cols.actionItems,
		cols.questions, cols.concerns, entry.FamilySummary,
		cols.terms, entry.VisitSummary,
		entry.AIConfidence, entry.AIModel, entry.ProcessingMethod, entry.LowConfidence,
		true, true, true,
		now, now)
	if err != nil {
		return nil, err
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_segments WHERE session_id = ?`, req.SessionID).Scan(&total); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_segments WHERE session_id = ?`, req.SessionID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE live_sessions
        SET session_status = ?, ended_at = ?, duration_seconds = ?, total_segments = ?, updated_at = ?
        WHERE session_id = ? AND session_status = ?
    `, string(req.Outcome), req.EndedAt, req.DurationSeconds, total, now, req.SessionID, string(model.SessionActive)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := *entry
	out.EntryID = id
	out.ConsentGiven = true
	out.AudioDeleted = true
	out.TranscriptsDeleted = true
	out.CreationTime = now
	out.UpdateTime = now
	return &out, nil
}

const journalSelect = `
        SELECT entry_id, session_id, user_id, patient_name, family_id,
               visit_date, provider_name, visit_type, main_reason,
               symptoms, diagnoses, treatments, vital_signs, test_results,
               medications, follow_up_instructions, next_appointments, action_items,
               patient_questions, family_concerns, family_summary,
               medical_terms_explained, visit_summary,
               ai_confidence, ai_model, processing_method, low_confidence,
               consent_given, audio_deleted, transcripts_deleted,
               personal_notes, created_at, updated_at
        FROM journal_entries`

func (j *journals) GetBySession(ctx context.Context, sessionID string) (*model.JournalEntry, error) {
	row := j.db.QueryRowContext(ctx, journalSelect+` WHERE session_id = ?`, sessionID)
	return scanJournal(row)
}

func (j *journals) GetByID(ctx context.Context, entryID string) (*model.JournalEntry, error) {
	row := j.db.QueryRowContext(ctx, journalSelect+` WHERE entry_id = ?`, entryID)
	return scanJournal(row)
}

func (j *journals) List(ctx context.Context, userID string, limit int) ([]*model.JournalEntry, error) {
	query := journalSelect + ` WHERE user_id = ? ORDER BY visit_date DESC, created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := j.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *journals) UpdatePersonalNotes(ctx context.Context, entryID, notes string) (*model.JournalEntry, error) {
	res, err := j.db.ExecContext(ctx, `UPDATE journal_entries SET personal_notes = ?, updated_at = ? WHERE entry_id = ?`,
		notes, time.Now().UTC(), entryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return j.GetByID(ctx, entryID)
}

type sectionCols struct {
	symptoms, diagnoses, treatments, vitalSigns, testResults string
	medications, instructions, appointments, actionItems     string
	questions, concerns, terms                               string
}

func marshalSections(s model.ClinicalSections) (sectionCols, error) {
	var c sectionCols
	var err error
	enc := func(v interface{}) string {
		if err != nil {
			return ""
		}
		b, e := json.Marshal(v)
		if e != nil {
			err = e
			return ""
		}
		return string(b)
	}
	c.symptoms = enc(s.Symptoms)
	c.diagnoses = enc(s.Diagnoses)
	c.treatments = enc(s.Treatments)
	c.vitalSigns = enc(s.VitalSigns)
	c.testResults = enc(s.TestResults)
	c.medications = enc(s.Medications)
	c.instructions = enc(s.FollowUpInstructions)
	c.appointments = enc(s.NextAppointments)
	c.actionItems = enc(s.ActionItems)
	c.questions = enc(s.PatientQuestions)
	c.concerns = enc(s.FamilyConcerns)
	c.terms = enc(s.TermsExplained)
	return c, err
}

func scanJournal(row interface{ Scan(...interface{}) error }) (*model.JournalEntry, error) {
	var m model.JournalEntry
	var c sectionCols
	var notes sql.NullString
	if err := row.Scan(&m.EntryID, &m.SessionID, &m.UserID, &m.PatientName, &m.FamilyID,
		&m.VisitDate, &m.ProviderName, &m.VisitType, &m.MainReason,
		&c.symptoms, &c.diagnoses, &c.treatments, &c.vitalSigns, &c.testResults,
		&c.medications, &c.instructions, &c.appointments, &c.actionItems,
		&c.questions, &c.concerns, &m.FamilySummary,
		&c.terms, &m.VisitSummary,
		&m.AIConfidence, &m.AIModel, &m.ProcessingMethod, &m.LowConfidence,
		&m.ConsentGiven, &m.AudioDeleted, &m.TranscriptsDeleted,
		&notes, &m.CreationTime, &m.UpdateTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if notes.Valid {
		n := notes.String
		m.PersonalNotes = &n
	}
	if err := unmarshalSections(c, &m.Sections); err != nil {
		return nil, err
	}
	return &m, nil
}

func unmarshalSections(c sectionCols, out *model.ClinicalSections) error {
	var err error
	dec := func(s string, v interface{}) {
		if err != nil || s == "" {
			return
		}
		err = json.Unmarshal([]byte(s), v)
	}
	dec(c.symptoms, &out.Symptoms)
	dec(c.diagnoses, &out.Diagnoses)
	dec(c.treatments, &out.Treatments)
	dec(c.vitalSigns, &out.VitalSigns)
	dec(c.testResults, &out.TestResults)
	dec(c.medications, &out.Medications)
	dec(c.instructions, &out.FollowUpInstructions)
	dec(c.appointments, &out.NextAppointments)
	dec(c.actionItems, &out.ActionItems)
	dec(c.questions, &out.PatientQuestions)
	dec(c.concerns, &out.FamilyConcerns)
	dec(c.terms, &out.TermsExplained)
	return err
}

// --- Enrollments ---

type enrollments struct{ db *sql.DB }

func (e *enrollments) Create(ctx context.Context, m *model.VoiceEnrollment) (*model.VoiceEnrollment, error) {
	id := m.EnrollmentID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	enrolled := m.EnrollmentDate
	if enrolled.IsZero() {
		enrolled = now
	}
	_, err := e.db.ExecContext(ctx, `
        INSERT INTO voice_enrollments
        (id, family_id, speaker_name, relationship, encrypted_voice_profile, quality_score, sample_count, enrollment_date, active, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)
    `, id, m.FamilyID, m.SpeakerName, m.Relationship, m.EncryptedProfile, m.QualityScore, m.SampleCount, enrolled, true, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.EnrollmentID = id
	out.EnrollmentDate = enrolled
	out.Active = true
	return &out, nil
}

func (e *enrollments) GetByID(ctx context.Context, enrollmentID string) (*model.VoiceEnrollment, error) {
	row := e.db.QueryRowContext(ctx, `
        SELECT id, family_id, speaker_name, relationship, encrypted_voice_profile, quality_score, sample_count, enrollment_date, active
        FROM voice_enrollments WHERE id = ?
    `, enrollmentID)
	return scanEnrollment(row)
}

func (e *enrollments) ListActiveByFamily(ctx context.Context, familyID string) ([]*model.VoiceEnrollment, error) {
	rows, err := e.db.QueryContext(ctx, `
        SELECT id, family_id, speaker_name, relationship, encrypted_voice_profile, quality_score, sample_count, enrollment_date, active
        FROM voice_enrollments WHERE family_id = ? AND active = 1 ORDER BY enrollment_date ASC
    `, familyID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.VoiceEnrollment
	for rows.Next() {
		m, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (e *enrollments) Deactivate(ctx context.Context, enrollmentID string) error {
	res, err := e.db.ExecContext(ctx, `UPDATE voice_enrollments SET active = 0 WHERE id = ?`, enrollmentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanEnrollment(row interface{ Scan(...interface{}) error }) (*model.VoiceEnrollment, error) {
	var m model.VoiceEnrollment
	if err := row.Scan(&m.EnrollmentID, &m.FamilyID, &m.SpeakerName, &m.Relationship,
		&m.EncryptedProfile, &m.QualityScore, &m.SampleCount, &m.EnrollmentDate, &m.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
