package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/classquiz/attempt-service/internal/models"
)

// APIClient implements Saver and Finalizer against the attempt service HTTP
// API. A zero token makes both calls no-ops, matching the dispatcher's
// behavior when no session is present.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type saveAnswersResponse struct {
	AttemptVersion int `json:"attempt_version"`
}

// SaveAnswers PUTs the full answers snapshot and returns the server's new
// attempt version.
func (c *APIClient) SaveAnswers(ctx context.Context, attemptID string, payload models.AnswersPayload) (int, error) {
	if c.token == "" {
		return 0, nil
	}

	body, err := json.Marshal(map[string]any{"answers": payload})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal answers: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/attempts/%s/answers", c.baseURL, attemptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("save request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("save rejected: status %d", resp.StatusCode)
	}

	var out saveAnswersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode save response: %w", err)
	}
	return out.AttemptVersion, nil
}

// FinishAttempt POSTs the finalize call and returns whatever score data the
// server has. Callers treat failure as "no score data available".
func (c *APIClient) FinishAttempt(ctx context.Context, attemptID string) (*FinishOutcome, error) {
	if c.token == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/api/v1/attempts/%s/finish", c.baseURL, attemptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finalize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finalize rejected: status %d", resp.StatusCode)
	}

	var outcome FinishOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode finalize response: %w", err)
	}
	return &outcome, nil
}

func (c *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
}
