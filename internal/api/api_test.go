package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/purge"
	"github.com/terra-femme/MedJournee/internal/services"
	"github.com/terra-femme/MedJournee/internal/speaker"
	"github.com/terra-femme/MedJournee/internal/store/sqlite"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
)

type cannedSummarizer struct{}

func (cannedSummarizer) Summarize(_ context.Context, req synthesizer.TranscriptRequest) (*synthesizer.SummaryResult, error) {
	conf := 0.88
	return &synthesizer.SummaryResult{
		ProviderName: "Dr. Chen",
		VisitType:    "Checkup",
		MainReason:   "Headache",
		VisitSummary: fmt.Sprintf("Visit with %d segments.", len(req.Segments)),
		Confidence:   &conf,
		Model:        "test-model",
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "visits.db"))
	require.NoError(t, err)

	registry := services.NewSessionRegistry()
	synth := synthesizer.NewSynthesizer(st, cannedSummarizer{}, "test-model")
	purger := purge.NewCoordinator(st)
	resolver := speaker.NewResolver(st.Enrollments(), speaker.PlaintextDecoder{}, 0.7, nil)

	router := NewRouter(Deps{
		Store:       st,
		Sessions:    services.NewSessionService(st, synth, purger, registry),
		Ingest:      services.NewIngestService(st, resolver, registry),
		Journal:     services.NewJournalService(st),
		Enrollments: services.NewEnrollmentService(st),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func startTestSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]string{
		"userId":         "user-1",
		"patientName":    "Maria Gonzalez",
		"familyId":       "family-1",
		"targetLanguage": "es",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestAPI_SessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	sessionID := startTestSession(t, srv)

	// Append two ordered segments.
	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sessionID+"/segments", map[string]interface{}{
			"speakerLabel":   "Speaker A",
			"roleHint":       string(model.RoleProvider),
			"originalText":   "How are you feeling?",
			"translatedText": "¿Cómo se siente?",
			"timestampStart": float64(i) * 2,
			"timestampEnd":   float64(i)*2 + 1,
			"confidence":     0.9,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	// Out-of-order segment is rejected.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sessionID+"/segments", map[string]interface{}{
		"originalText":   "late",
		"timestampStart": 0.5,
		"timestampEnd":   1.0,
		"confidence":     0.9,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+sessionID+"/segments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])

	// Complete the session.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sessionID+"/end", map[string]string{"outcome": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry, ok := body["journalEntry"].(map[string]interface{})
	require.True(t, ok, "missing journal entry in %v", body)
	assert.Equal(t, "Visit with 2 segments.", entry["visitSummary"])
	assert.Equal(t, true, entry["consentGiven"])
	assert.Equal(t, true, entry["transcriptsDeleted"])

	// Terminal once.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sessionID+"/end", map[string]string{"outcome": "failed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Segments are purged; appends are refused.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+sessionID+"/segments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sessionID+"/segments", map[string]interface{}{
		"originalText": "too late", "timestampEnd": 10, "confidence": 0.9,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Journal is readable by session and by user.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+sessionID+"/journal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entryID, _ := body["entryId"].(string)
	require.NotEmpty(t, entryID)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/users/user-1/journal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	// Personal notes are the one mutable field.
	resp, body = doJSON(t, http.MethodPatch, srv.URL+"/api/journal/"+entryID+"/notes", map[string]string{"personalNotes": "ask about dosage"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ask about dosage", body["personalNotes"])
}

func TestAPI_ValidationAndNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]string{"userId": "user-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/sessions/session-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/session-missing/end", map[string]string{"outcome": "completed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sessionID := startTestSession(t, srv)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sessionID+"/end", map[string]string{"outcome": "paused"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Enrollments(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]interface{}{
		"familyId":         "family-1",
		"speakerName":      "Rosa",
		"relationship":     "mother",
		"meanEmbedding":    []float64{0.1, 0.2, 0.3},
		"qualityScore":     0.9,
		"consistencyScore": 0.95,
		"sampleCount":      3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	enrollmentID, _ := body["enrollmentId"].(string)
	require.NotEmpty(t, enrollmentID)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/families/family-1/enrollments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/enrollments/"+enrollmentID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/families/family-1/enrollments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]interface{}{"familyId": "family-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
