// Package translate calls a LibreTranslate-compatible translation endpoint.
package translate

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

	"golang.org/x/text/language"
)

// ErrDisabled is returned when no endpoint is configured
var ErrDisabled = errors.New("translation endpoint not configured")

// Client wraps the translation API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config for the translation client
type Config struct {
	BaseURL string
	APIKey  string
}

// Result is a translated text and the detected source language
type Result struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewClient creates a new translation client
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// Enabled reports whether an endpoint is configured
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// NormalizeLanguage parses a BCP 47 tag and returns its base language code
func NormalizeLanguage(tag string) (string, error) {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", tag, err)
	}
	base, _ := t.Base()
	return base.String(), nil
}

// Translate translates text into target. An empty source means auto-detect.
func (c *Client) Translate(ctx context.Context, text, source, target string) (*Result, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	tgt, err := NormalizeLanguage(target)
	if err != nil {
		return nil, err
	}
	src := "auto"
	if source != "" && source != "auto" {
		if src, err = NormalizeLanguage(source); err != nil {
			return nil, err
		}
	}

	body, _ := json.Marshal(translateRequest{Q: text, Source: src, Target: tgt, Format: "text", APIKey: c.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out translateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("translate: decode: %w", err)
	}
	if resp.StatusCode >= 300 || out.Error != "" {
		return nil, fmt.Errorf("translate: status %d: %s", resp.StatusCode, out.Error)
	}

	result := &Result{Text: out.TranslatedText, SourceLanguage: src, TargetLanguage: tgt}
	if out.DetectedLanguage != nil && out.DetectedLanguage.Language != "" {
		result.SourceLanguage = out.DetectedLanguage.Language
	}
	return result, nil
}
