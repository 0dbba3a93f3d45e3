package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sentiment labels
const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

// Client calls a text-classification model on the Hugging Face inference API
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Config for the Hugging Face client
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewClient creates a new Hugging Face client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co/models"
	}
	if cfg.Model == "" {
		cfg.Model = "cardiffnlp/twitter-roberta-base-sentiment-latest"
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Sentiment classifies text as positive, neutral or negative
func (c *Client) Sentiment(ctx context.Context, text string) (string, float64, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.model, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("huggingface status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return "", 0, err
	}
	best := labelScore{}
	for _, s := range scores {
		if s.Score > best.Score {
			best = s
		}
	}
	if best.Label == "" {
		return "", 0, fmt.Errorf("huggingface returned no labels")
	}
	return normalizeLabel(best.Label), best.Score, nil
}

// decodeScores accepts both the nested [[...]] and flat [...] response shapes
func decodeScores(raw []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}
	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode huggingface response: %w", err)
	}
	return flat, nil
}

func normalizeLabel(label string) string {
	switch strings.ToLower(label) {
	case "label_0", "negative", "neg":
		return Negative
	case "label_2", "positive", "pos":
		return Positive
	default:
		return Neutral
	}
}
