package services

import (
	"context"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/store"
)

const defaultJournalListLimit = 50

// JournalService reads committed journal entries. Entries are immutable apart
// from the owner's personal notes.
type JournalService struct {
	store store.Store
}

func NewJournalService(s store.Store) *JournalService {
	return &JournalService{store: s}
}

func (s *JournalService) Get(ctx context.Context, entryID string) (*model.JournalEntry, error) {
	if entryID == "" {
		return nil, &model.ValidationError{Field: "entryId", Message: "entry ID is required"}
	}
	return s.store.Journals().GetByID(ctx, entryID)
}

func (s *JournalService) GetBySession(ctx context.Context, sessionID string) (*model.JournalEntry, error) {
	if sessionID == "" {
		return nil, &model.ValidationError{Field: "sessionId", Message: "session ID is required"}
	}
	return s.store.Journals().GetBySession(ctx, sessionID)
}

// List returns a user's entries, newest visit first.
func (s *JournalService) List(ctx context.Context, userID string, limit int) ([]*model.JournalEntry, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "userId", Message: "user ID is required"}
	}
	if limit <= 0 {
		limit = defaultJournalListLimit
	}
	return s.store.Journals().List(ctx, userID, limit)
}

// UpdatePersonalNotes replaces the owner-editable notes on an entry.
func (s *JournalService) UpdatePersonalNotes(ctx context.Context, entryID, notes string) (*model.JournalEntry, error) {
	if entryID == "" {
		return nil, &model.ValidationError{Field: "entryId", Message: "entry ID is required"}
	}
	return s.store.Journals().UpdatePersonalNotes(ctx, entryID, notes)
}
