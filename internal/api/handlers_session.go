package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/terra-femme/MedJournee/internal/api/respond"
	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/services"
)

// SessionHandler is a thin HTTP transport over the session and ingest
// services.
type SessionHandler struct {
	sessions *services.SessionService
	ingest   *services.IngestService
}

func NewSessionHandler(sessions *services.SessionService, ingest *services.IngestService) *SessionHandler {
	return &SessionHandler{sessions: sessions, ingest: ingest}
}

// StartSession POST /api/sessions
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req services.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	sess, err := h.sessions.Start(r.Context(), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sess)
}

// GetSession GET /api/sessions/{sessionId}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sess)
}

// ListSessions GET /api/users/{userId}/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions, "count": len(sessions)})
}

// EndSession POST /api/sessions/{sessionId}/end
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	result, err := h.sessions.End(r.Context(), mux.Vars(r)["sessionId"], model.SessionStatus(req.Outcome))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}

	body := map[string]interface{}{"session": result.Session}
	if result.Entry != nil {
		body["journalEntry"] = result.Entry
	}
	if result.SynthesisErr != nil {
		body["synthesisError"] = result.SynthesisErr.Error()
	}
	respond.WriteJSON(w, http.StatusOK, body)
}

// AppendSegment POST /api/sessions/{sessionId}/segments
func (h *SessionHandler) AppendSegment(w http.ResponseWriter, r *http.Request) {
	var req services.AppendSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	req.SessionID = mux.Vars(r)["sessionId"]
	seg, err := h.ingest.Append(r.Context(), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, seg)
}

// ListSegments GET /api/sessions/{sessionId}/segments
func (h *SessionHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	segs, err := h.ingest.Sequence(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"segments": segs, "count": len(segs)})
}
