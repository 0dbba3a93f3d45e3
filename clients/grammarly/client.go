// Package grammarly talks to the Grammarly AI-detection API. A score request is
// created, the text is uploaded to the returned URL, and the result is polled.
package grammarly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/logging"
)

// MinWords is the shortest text the detector will score
const MinWords = 30

// ErrTooShort is returned for texts below MinWords
var ErrTooShort = errors.New("text too short for ai detection")

// Client wraps the Grammarly AI-detection API
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	logger       *zap.SugaredLogger
}

// Config for Grammarly client
type Config struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

// Result is the detector's verdict
type Result struct {
	AIGeneratedPercentage float64 `json:"ai_generated_percentage"`
	AverageConfidence     float64 `json:"average_confidence"`
}

type createResponse struct {
	ScoreRequestID string `json:"score_request_id"`
	FileUploadURL  string `json:"file_upload_url"`
}

type statusResponse struct {
	Status string  `json:"status"`
	Score  *Result `json:"score"`
}

// NewClient creates a new Grammarly client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.grammarly.com"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = 5
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		logger:       logging.New("grammarly"),
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Detect returns the share (0..1) of text the detector believes is AI generated
func (c *Client) Detect(ctx context.Context, text string) (float64, error) {
	if len(strings.Fields(text)) < MinWords {
		return 0, ErrTooShort
	}

	var created createResponse
	body, _ := json.Marshal(map[string]string{"filename": "report.txt"})
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/ecosystem/api/v1/ai-detection", bytes.NewReader(body), &created); err != nil {
		return 0, fmt.Errorf("create score request: %w", err)
	}
	if created.ScoreRequestID == "" || created.FileUploadURL == "" {
		return 0, errors.New("create score request: missing id or upload url")
	}

	upload, err := http.NewRequestWithContext(ctx, http.MethodPut, created.FileUploadURL, strings.NewReader(text))
	if err != nil {
		return 0, err
	}
	upload.Header.Set("Content-Type", "text/plain")
	resp, err := c.httpClient.Do(upload)
	if err != nil {
		return 0, fmt.Errorf("upload text: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("upload text: status %d", resp.StatusCode)
	}

	statusURL := c.baseURL + "/ecosystem/api/v1/ai-detection/" + created.ScoreRequestID
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var status statusResponse
		if err := c.do(ctx, http.MethodGet, statusURL, nil, &status); err != nil {
			return 0, fmt.Errorf("poll score: %w", err)
		}
		switch strings.ToUpper(status.Status) {
		case "COMPLETED":
			if status.Score == nil {
				return 0, errors.New("completed without score")
			}
			return status.Score.AIGeneratedPercentage / 100, nil
		case "FAILED":
			return 0, errors.New("score request failed")
		}
		c.logger.Debugw("ai detection pending", "id", created.ScoreRequestID, "attempt", attempt+1)
	}
	return 0, fmt.Errorf("score not ready after %d polls", c.maxPolls)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
