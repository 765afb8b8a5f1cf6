package api

import (
	"github.com/gorilla/mux"

	"github.com/terra-femme/MedJournee/internal/api/recovery"
	"github.com/terra-femme/MedJournee/internal/services"
	"github.com/terra-femme/MedJournee/internal/store"
)

// Deps bundles the wired services the router exposes.
type Deps struct {
	Store       store.Store
	Sessions    *services.SessionService
	Ingest      *services.IngestService
	Journal     *services.JournalService
	Enrollments *services.EnrollmentService
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(d.Store)
	sessionHandler := NewSessionHandler(d.Sessions, d.Ingest)
	journalHandler := NewJournalHandler(d.Journal)
	enrollmentHandler := NewEnrollmentHandler(d.Enrollments)

	// Health
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// Session lifecycle
	router.HandleFunc("/api/sessions", sessionHandler.StartSession).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}", sessionHandler.GetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionId}/end", sessionHandler.EndSession).Methods("POST")
	router.HandleFunc("/api/users/{userId}/sessions", sessionHandler.ListSessions).Methods("GET")

	// Segment ingestion
	router.HandleFunc("/api/sessions/{sessionId}/segments", sessionHandler.AppendSegment).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}/segments", sessionHandler.ListSegments).Methods("GET")

	// Journal
	router.HandleFunc("/api/users/{userId}/journal", journalHandler.ListJournal).Methods("GET")
	router.HandleFunc("/api/journal/{entryId}", journalHandler.GetEntry).Methods("GET")
	router.HandleFunc("/api/journal/{entryId}/notes", journalHandler.UpdateNotes).Methods("PATCH")
	router.HandleFunc("/api/sessions/{sessionId}/journal", journalHandler.GetSessionEntry).Methods("GET")

	// Voice enrollments
	router.HandleFunc("/api/enrollments", enrollmentHandler.CreateEnrollment).Methods("POST")
	router.HandleFunc("/api/enrollments/{enrollmentId}", enrollmentHandler.DeactivateEnrollment).Methods("DELETE")
	router.HandleFunc("/api/families/{familyId}/enrollments", enrollmentHandler.ListEnrollments).Methods("GET")

	return router
}
