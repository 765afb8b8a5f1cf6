package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
)

func transcript() synthesizer.TranscriptRequest {
	return synthesizer.TranscriptRequest{
		SessionID:      "session-1",
		PatientName:    "Maria Gonzalez",
		TargetLanguage: "es",
		Segments: []synthesizer.TranscriptSegment{
			{Speaker: "Dr. Chen", Role: "Healthcare Provider", OriginalText: "How are you?", Start: 0, End: 1},
		},
	}
}

func TestSummarize_DecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/summarize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req summarizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4" || len(req.Transcript) != 1 {
			t.Errorf("request payload: %+v", req)
		}
		conf := 0.9
		_ = json.NewEncoder(w).Encode(synthesizer.SummaryResult{
			ProviderName: "Dr. Chen",
			VisitType:    "Checkup",
			VisitSummary: "All good.",
			Confidence:   &conf,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "gpt-4", 5*time.Second, 0)
	result, err := c.Summarize(context.Background(), transcript())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.VisitSummary != "All good." || result.Confidence == nil || *result.Confidence != 0.9 {
		t.Fatalf("result: %+v", result)
	}
	if result.Model != "gpt-4" {
		t.Fatalf("model fallback: %q", result.Model)
	}
}

func TestSummarize_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(synthesizer.SummaryResult{VisitSummary: "Recovered."})
	}))
	defer srv.Close()

	c := New(srv.URL, "gpt-4", 5*time.Second, 1)
	result, err := c.Summarize(context.Background(), transcript())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.VisitSummary != "Recovered." {
		t.Fatalf("result: %+v", result)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestSummarize_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "gpt-4", 5*time.Second, 1)
	_, err := c.Summarize(context.Background(), transcript())
	if !model.IsExternalServiceError(err) {
		t.Fatalf("want external service error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want initial attempt plus one retry", calls.Load())
	}
}

func TestSummarize_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(srv.URL, "gpt-4", 5*time.Second, 3)
	_, err := c.Summarize(ctx, transcript())
	if !model.IsExternalServiceError(err) {
		t.Fatalf("want external service error, got %v", err)
	}
}
