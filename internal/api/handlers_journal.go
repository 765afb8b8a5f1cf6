package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/terra-femme/MedJournee/internal/api/respond"
	"github.com/terra-femme/MedJournee/internal/services"
)

// JournalHandler serves committed journal entries.
type JournalHandler struct {
	svc *services.JournalService
}

func NewJournalHandler(svc *services.JournalService) *JournalHandler {
	return &JournalHandler{svc: svc}
}

// ListJournal GET /api/users/{userId}/journal
func (h *JournalHandler) ListJournal(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.List(r.Context(), mux.Vars(r)["userId"], limit)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// GetEntry GET /api/journal/{entryId}
func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Get(r.Context(), mux.Vars(r)["entryId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, entry)
}

// GetSessionEntry GET /api/sessions/{sessionId}/journal
func (h *JournalHandler) GetSessionEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.GetBySession(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, entry)
}

// UpdateNotes PATCH /api/journal/{entryId}/notes
func (h *JournalHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonalNotes string `json:"personalNotes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	entry, err := h.svc.UpdatePersonalNotes(r.Context(), mux.Vars(r)["entryId"], req.PersonalNotes)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, entry)
}
