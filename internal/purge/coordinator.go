// Package purge coordinates the terminal transition of a session: stamping
// the outcome and destroying every conversational segment in one atomic unit.
// A failure here can mean loss of documentation, never loss of privacy: the
// session stays held as active until a purge succeeds.
package purge

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
)

// Coordinator drives terminal commits against the store.
type Coordinator struct {
	store store.Store
}

func NewCoordinator(s store.Store) *Coordinator {
	return &Coordinator{store: s}
}

// CommitCompleted persists the journal entry and purges the session's
// segments in a single transaction, stamping the session completed. If the
// transaction cannot commit, nothing changes: no entry, no purge, session
// still active, and the error is reported as a PurgeError.
func (c *Coordinator) CommitCompleted(ctx context.Context, entry *model.JournalEntry, req store.TerminateRequest) (*model.JournalEntry, error) {
	committed, err := c.store.Journals().CommitWithPurge(ctx, entry, req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidState) || errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("sessionID", req.SessionID).Msg("journal commit with purge failed, session remains held")
		return nil, &model.PurgeError{SessionID: req.SessionID, Err: err}
	}

	log.Info().
		Str("sessionID", req.SessionID).
		Str("entryID", committed.EntryID).
		Int("durationSeconds", req.DurationSeconds).
		Msg("session completed, journal committed, segments purged")
	return committed, nil
}

// CommitFailed stamps the session failed and purges its segments without
// producing a journal entry. Conversational data is destroyed regardless of
// outcome.
func (c *Coordinator) CommitFailed(ctx context.Context, req store.TerminateRequest) (*model.Session, error) {
	req.Outcome = model.SessionFailed
	sess, err := c.store.Sessions().Terminate(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidState) || errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("sessionID", req.SessionID).Msg("failed-session purge did not commit, session remains held")
		return nil, &model.PurgeError{SessionID: req.SessionID, Err: err}
	}

	log.Info().
		Str("sessionID", req.SessionID).
		Int("segmentsPurged", sess.TotalSegments).
		Msg("session failed, segments purged without journal")
	return sess, nil
}
