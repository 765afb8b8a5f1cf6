package postgres

import "database/sql"

// EnsureSchema creates the visit-session tables if they do not exist.
// Deployed environments normally run migrations out of band; this is used by
// local bootstrap and the integration test suite.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS live_sessions (
            session_id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            patient_name TEXT NOT NULL,
            family_id TEXT NOT NULL,
            target_language TEXT NOT NULL,
            session_status TEXT NOT NULL,
            started_at TIMESTAMPTZ NOT NULL,
            ended_at TIMESTAMPTZ,
            total_segments INTEGER NOT NULL DEFAULT 0,
            duration_seconds INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS session_segments (
            segment_id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL REFERENCES live_sessions(session_id) ON DELETE CASCADE,
            speaker TEXT NOT NULL,
            speaker_role TEXT NOT NULL,
            original_text TEXT NOT NULL,
            translated_text TEXT NOT NULL,
            timestamp_start DOUBLE PRECISION NOT NULL,
            timestamp_end DOUBLE PRECISION NOT NULL,
            confidence DOUBLE PRECISION NOT NULL,
            enrollment_match BOOLEAN NOT NULL DEFAULT false,
            enrollment_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
            method TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS session_segments_session_idx ON session_segments(session_id, timestamp_start);`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
            entry_id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL UNIQUE REFERENCES live_sessions(session_id),
            user_id TEXT NOT NULL,
            patient_name TEXT NOT NULL,
            family_id TEXT NOT NULL,
            visit_date TEXT NOT NULL,
            provider_name TEXT NOT NULL,
            visit_type TEXT NOT NULL,
            main_reason TEXT NOT NULL,
            symptoms JSONB NOT NULL,
            diagnoses JSONB NOT NULL,
            treatments JSONB NOT NULL,
            vital_signs JSONB NOT NULL,
            test_results JSONB NOT NULL,
            medications JSONB NOT NULL,
            follow_up_instructions JSONB NOT NULL,
            next_appointments JSONB NOT NULL,
            action_items JSONB NOT NULL,
            patient_questions JSONB NOT NULL,
            family_concerns JSONB NOT NULL,
            family_summary TEXT NOT NULL,
            medical_terms_explained JSONB NOT NULL,
            visit_summary TEXT NOT NULL,
            ai_confidence DOUBLE PRECISION NOT NULL,
            ai_model TEXT NOT NULL,
            processing_method TEXT NOT NULL,
            low_confidence BOOLEAN NOT NULL DEFAULT false,
            consent_given BOOLEAN NOT NULL,
            audio_deleted BOOLEAN NOT NULL,
            transcripts_deleted BOOLEAN NOT NULL,
            personal_notes TEXT,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS journal_entries_user_idx ON journal_entries(user_id, visit_date);`,
		`CREATE TABLE IF NOT EXISTS voice_enrollments (
            id TEXT PRIMARY KEY,
            family_id TEXT NOT NULL,
            speaker_name TEXT NOT NULL,
            relationship TEXT NOT NULL,
            encrypted_voice_profile BYTEA NOT NULL,
            quality_score DOUBLE PRECISION NOT NULL,
            sample_count INTEGER NOT NULL,
            enrollment_date TIMESTAMPTZ NOT NULL,
            active BOOLEAN NOT NULL DEFAULT true,
            created_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS voice_enrollments_family_idx ON voice_enrollments(family_id, active);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
