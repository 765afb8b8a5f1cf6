package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode. ":memory:" opens an in-memory database (used by tests and
// local throwaway runs).
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(ON)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// In-memory databases vanish when their last connection closes; pin one.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the visit-session tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS live_sessions (
            session_id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            patient_name TEXT NOT NULL,
            family_id TEXT NOT NULL,
            target_language TEXT NOT NULL,
            session_status TEXT NOT NULL,
            started_at TIMESTAMP NOT NULL,
            ended_at TIMESTAMP,
            total_segments INTEGER NOT NULL DEFAULT 0,
            duration_seconds INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS session_segments (
            segment_id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL REFERENCES live_sessions(session_id) ON DELETE CASCADE,
            speaker TEXT NOT NULL,
            speaker_role TEXT NOT NULL,
            original_text TEXT NOT NULL,
            translated_text TEXT NOT NULL,
            timestamp_start REAL NOT NULL,
            timestamp_end REAL NOT NULL,
            confidence REAL NOT NULL,
            enrollment_match BOOLEAN NOT NULL DEFAULT 0,
            enrollment_confidence REAL NOT NULL DEFAULT 0,
            method TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
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
            symptoms TEXT NOT NULL,
            diagnoses TEXT NOT NULL,
            treatments TEXT NOT NULL,
            vital_signs TEXT NOT NULL,
            test_results TEXT NOT NULL,
            medications TEXT NOT NULL,
            follow_up_instructions TEXT NOT NULL,
            next_appointments TEXT NOT NULL,
            action_items TEXT NOT NULL,
            patient_questions TEXT NOT NULL,
            family_concerns TEXT NOT NULL,
            family_summary TEXT NOT NULL,
            medical_terms_explained TEXT NOT NULL,
            visit_summary TEXT NOT NULL,
            ai_confidence REAL NOT NULL,
            ai_model TEXT NOT NULL,
            processing_method TEXT NOT NULL,
            low_confidence BOOLEAN NOT NULL DEFAULT 0,
            consent_given BOOLEAN NOT NULL,
            audio_deleted BOOLEAN NOT NULL,
            transcripts_deleted BOOLEAN NOT NULL,
            personal_notes TEXT,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS journal_entries_user_idx ON journal_entries(user_id, visit_date);`,
		`CREATE TABLE IF NOT EXISTS voice_enrollments (
            id TEXT PRIMARY KEY,
            family_id TEXT NOT NULL,
            speaker_name TEXT NOT NULL,
            relationship TEXT NOT NULL,
            encrypted_voice_profile BLOB NOT NULL,
            quality_score REAL NOT NULL,
            sample_count INTEGER NOT NULL,
            enrollment_date TIMESTAMP NOT NULL,
            active BOOLEAN NOT NULL DEFAULT 1,
            created_at TIMESTAMP NOT NULL
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
