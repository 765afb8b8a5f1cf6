// Package summarizer is the HTTP client for the external medical
// summarization service.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
)

const serviceName = "summarizer"

// Client calls the summarization service over HTTP. Retries are bounded with
// doubling backoff; every failure surfaces as an ExternalServiceError so
// callers can distinguish collaborator trouble from local faults.
type Client struct {
	http       *resty.Client
	model      string
	maxRetries int
}

func New(baseURL, aiModel string, timeout time.Duration, maxRetries int) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{http: c, model: aiModel, maxRetries: maxRetries}
}

type summarizeRequest struct {
	Model          string                          `json:"model"`
	SessionID      string                          `json:"session_id"`
	PatientName    string                          `json:"patient_name"`
	TargetLanguage string                          `json:"target_language"`
	Transcript     []synthesizer.TranscriptSegment `json:"transcript"`
}

// Summarize submits the transcript and decodes the structured summary.
func (c *Client) Summarize(ctx context.Context, req synthesizer.TranscriptRequest) (*synthesizer.SummaryResult, error) {
	body := summarizeRequest{
		Model:          c.model,
		SessionID:      req.SessionID,
		PatientName:    req.PatientName,
		TargetLanguage: req.TargetLanguage,
		Transcript:     req.Segments,
	}

	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Int("attempt", attempt).Str("sessionID", req.SessionID).Msg("retrying summarization")
			select {
			case <-ctx.Done():
				return nil, &model.ExternalServiceError{Service: serviceName, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		result, err := c.post(ctx, &body)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, &model.ExternalServiceError{Service: serviceName, Err: lastErr}
}

func (c *Client) post(ctx context.Context, body *summarizeRequest) (*synthesizer.SummaryResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/summarize")
	if err != nil {
		return nil, fmt.Errorf("summarize request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("summarize status %d: %s", resp.StatusCode(), resp.String())
	}

	var result synthesizer.SummaryResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if result.Model == "" {
		result.Model = c.model
	}
	return &result, nil
}
