// Package deepfake scores images with a Sightengine-compatible deepfake model.
package deepfake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FlagThreshold is the score at or above which an image is treated as a deepfake
const FlagThreshold = 0.7

// Client wraps the detection API
type Client struct {
	user       string
	secret     string
	baseURL    string
	httpClient *http.Client
}

// Config for the deepfake client
type Config struct {
	User    string
	Secret  string
	BaseURL string
}

type checkResponse struct {
	Status string `json:"status"`
	Type   struct {
		Deepfake float64 `json:"deepfake"`
	} `json:"type"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new deepfake client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sightengine.com/1.0"
	}
	return &Client{
		user:       cfg.User,
		secret:     cfg.Secret,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// Enabled reports whether credentials are configured
func (c *Client) Enabled() bool {
	return c != nil && c.user != "" && c.secret != ""
}

// Score returns the deepfake probability (0..1) for a publicly reachable image
func (c *Client) Score(ctx context.Context, imageURL string) (float64, error) {
	q := url.Values{}
	q.Set("url", imageURL)
	q.Set("models", "deepfake")
	q.Set("api_user", c.user)
	q.Set("api_secret", c.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check.json?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("deepfake check: %w", err)
	}
	defer resp.Body.Close()

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("deepfake check: decode: %w", err)
	}
	if resp.StatusCode >= 300 || out.Status != "success" {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return 0, errors.New("deepfake check: " + msg)
	}
	return out.Type.Deepfake, nil
}

// MaxScore scores every image and keeps the highest probability. It fails only
// when no image could be scored.
func (c *Client) MaxScore(ctx context.Context, imageURLs []string) (float64, error) {
	best, scored := 0.0, 0
	var lastErr error
	for _, u := range imageURLs {
		s, err := c.Score(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		scored++
		if s > best {
			best = s
		}
	}
	if scored == 0 {
		if lastErr == nil {
			lastErr = errors.New("no images to score")
		}
		return 0, lastErr
	}
	return best, nil
}
