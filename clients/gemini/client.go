package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/crimeshield/crimeshield-api/logging"
)

// ErrNoAPIKey is returned by NewClient when no key is configured
var ErrNoAPIKey = errors.New("gemini API key is required")

// maxImages caps how many attachments are sent inline with a prompt
const maxImages = 3

// Image is an inline image passed to the vision model
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is the incident text (and optional images) to classify
type Request struct {
	Title       string
	Description string
	Images      []Image
}

// Classification is the structured answer requested from the model
type Classification struct {
	Summary        string   `json:"summary"`
	Category       string   `json:"category"`
	ThreatLevel    string   `json:"threatLevel"`
	IsCrimeRelated bool     `json:"isCrimeRelated"`
	Confidence     float64  `json:"confidence"`
	Tags           []string `json:"tags"`
	Language       string   `json:"language"`
}

// generator is the slice of *genai.GenerativeModel the client uses
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client wraps the Gemini API client
type Client struct {
	client    *genai.Client
	model     generator
	modelName string
	logger    *zap.SugaredLogger
}

// Config for Gemini client
type Config struct {
	APIKey    string
	ModelName string
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig.Temperature = genai.Ptr[float32](0.2)
	model.GenerationConfig.MaxOutputTokens = genai.Ptr[int32](600)

	zap.S().Infow("gemini client initialized", "model", cfg.ModelName)

	return &Client{
		client:    client,
		model:     model,
		modelName: cfg.ModelName,
		logger:    logging.New("gemini"),
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Classify asks the model to categorise an incident and rate its threat level
func (c *Client) Classify(ctx context.Context, req Request) (*Classification, error) {
	parts := []genai.Part{genai.Text(buildPrompt(req.Title, req.Description))}
	for i, img := range req.Images {
		if i == maxImages {
			break
		}
		parts = append(parts, genai.ImageData(imageFormat(img.MIMEType), img.Data))
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("empty response from gemini")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	result, err := parseClassification(sb.String())
	if err != nil {
		c.logger.Errorw("failed to parse gemini response", "error", err, "response", sb.String())
		return nil, err
	}
	return result, nil
}

// parseClassification decodes the model output, tolerating markdown code fences
func parseClassification(raw string) (*Classification, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var result Classification
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	result.Category = strings.ToLower(strings.TrimSpace(result.Category))
	result.ThreatLevel = strings.ToLower(strings.TrimSpace(result.ThreatLevel))
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

// imageFormat turns "image/png" into the "png" genai expects
func imageFormat(mimeType string) string {
	if i := strings.IndexByte(mimeType, '/'); i >= 0 {
		return mimeType[i+1:]
	}
	if mimeType == "" {
		return "jpeg"
	}
	return mimeType
}
