package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/terra-femme/MedJournee/internal/api/respond"
	"github.com/terra-femme/MedJournee/internal/services"
)

// EnrollmentHandler manages the voice-enrollment roster over HTTP.
type EnrollmentHandler struct {
	svc *services.EnrollmentService
}

func NewEnrollmentHandler(svc *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

// CreateEnrollment POST /api/enrollments
func (h *EnrollmentHandler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	var req services.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	e, err := h.svc.Enroll(r.Context(), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, e)
}

// ListEnrollments GET /api/families/{familyId}/enrollments
func (h *EnrollmentHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	roster, err := h.svc.ListActive(r.Context(), mux.Vars(r)["familyId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"enrollments": roster, "count": len(roster)})
}

// DeactivateEnrollment DELETE /api/enrollments/{enrollmentId}
func (h *EnrollmentHandler) DeactivateEnrollment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Deactivate(r.Context(), mux.Vars(r)["enrollmentId"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
