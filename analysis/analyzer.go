// Package analysis combines the third-party classifiers into a single report analysis.
package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimeshield/crimeshield-api/clients/deepfake"
	"github.com/crimeshield/crimeshield-api/clients/gemini"
	"github.com/crimeshield/crimeshield-api/clients/grammarly"
	"github.com/crimeshield/crimeshield-api/clients/huggingface"
	"github.com/crimeshield/crimeshield-api/models"
)

// Provider names as reported in AIAnalysis.Providers
const (
	ProviderGemini    = "gemini"
	ProviderGrammarly = "grammarly"
	ProviderDeepfake  = "deepfake"
	ProviderSentiment = "sentiment"
)

// Provider outcomes
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Classifier categorises an incident
type Classifier interface {
	Classify(ctx context.Context, req gemini.Request) (*gemini.Classification, error)
}

// AIDetector estimates how much of a text was machine generated
type AIDetector interface {
	Detect(ctx context.Context, text string) (float64, error)
}

// DeepfakeScorer estimates the probability that images were manipulated
type DeepfakeScorer interface {
	MaxScore(ctx context.Context, imageURLs []string) (float64, error)
}

// SentimentScorer labels text as positive, neutral or negative
type SentimentScorer interface {
	Sentiment(ctx context.Context, text string) (string, float64, error)
}

// Input is the content to analyze
type Input struct {
	Title       string
	Description string
	Images      []gemini.Image
	ImageURLs   []string
}

func (in Input) text() string {
	return strings.TrimSpace(in.Title + "\n\n" + in.Description)
}

// Analyzer runs every configured provider. A nil provider is reported as skipped.
type Analyzer struct {
	Classifier Classifier
	Detector   AIDetector
	Deepfake   DeepfakeScorer
	Sentiments SentimentScorer

	timeout time.Duration
}

// Defaults used when a provider is skipped or fails
const (
	DefaultCategory    = "other"
	DefaultThreatLevel = "low"
	UnknownScore       = -1.0
)

// New returns an Analyzer with the given per-provider timeout
func New(timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Analyzer{timeout: timeout}
}

// Analyze runs the providers concurrently. It never fails: provider errors are
// logged, recorded in Providers and replaced by defaults.
func (a *Analyzer) Analyze(ctx context.Context, in Input) models.AIAnalysis {
	out := models.AIAnalysis{
		SuggestedCategory:    DefaultCategory,
		SuggestedThreatLevel: DefaultThreatLevel,
		IsCrimeRelated:       true,
		Tags:                 []string{},
		AIGeneratedScore:     UnknownScore,
		DeepfakeScore:        UnknownScore,
		Sentiment:            huggingface.Neutral,
		Providers: map[string]string{
			ProviderGemini:    StatusSkipped,
			ProviderGrammarly: StatusSkipped,
			ProviderDeepfake:  StatusSkipped,
			ProviderSentiment: StatusSkipped,
		},
	}

	var mu sync.Mutex
	record := func(provider string, err error, apply func()) {
		status := StatusOK
		switch {
		case errors.Is(err, grammarly.ErrTooShort):
			status = StatusSkipped
		case err != nil:
			status = StatusFailed
			zap.S().Warnw("analysis provider failed", "provider", provider, "error", err)
		}
		providerResults.WithLabelValues(provider, status).Inc()

		mu.Lock()
		defer mu.Unlock()
		out.Providers[provider] = status
		if err == nil && apply != nil {
			apply()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	run := func(fn func(context.Context)) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()
			fn(cctx)
			return nil
		})
	}

	if a.Classifier != nil {
		run(func(ctx context.Context) {
			c, err := a.Classifier.Classify(ctx, gemini.Request{Title: in.Title, Description: in.Description, Images: in.Images})
			record(ProviderGemini, err, func() { applyClassification(&out, c) })
		})
	}
	if a.Detector != nil {
		run(func(ctx context.Context) {
			score, err := a.Detector.Detect(ctx, in.text())
			record(ProviderGrammarly, err, func() { out.AIGeneratedScore = score })
		})
	}
	if a.Deepfake != nil && len(in.ImageURLs) > 0 {
		run(func(ctx context.Context) {
			score, err := a.Deepfake.MaxScore(ctx, in.ImageURLs)
			record(ProviderDeepfake, err, func() {
				out.DeepfakeScore = score
				out.DeepfakeFlag = score >= deepfake.FlagThreshold
			})
		})
	}
	if a.Sentiments != nil {
		run(func(ctx context.Context) {
			label, _, err := a.Sentiments.Sentiment(ctx, in.text())
			record(ProviderSentiment, err, func() { out.Sentiment = label })
		})
	}
	_ = g.Wait()

	out.AnalyzedAt = primitive.NewDateTimeFromTime(time.Now())
	return out
}

// Sentiment labels a single text, falling back to neutral
func (a *Analyzer) Sentiment(ctx context.Context, text string) string {
	if a.Sentiments == nil || strings.TrimSpace(text) == "" {
		return huggingface.Neutral
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	label, _, err := a.Sentiments.Sentiment(ctx, text)
	if err != nil {
		zap.S().Warnw("comment sentiment failed", "error", err)
		providerResults.WithLabelValues(ProviderSentiment, StatusFailed).Inc()
		return huggingface.Neutral
	}
	providerResults.WithLabelValues(ProviderSentiment, StatusOK).Inc()
	return label
}

// Classify runs only the classifier, as the crawler does for each article
func (a *Analyzer) Classify(ctx context.Context, title, description string) (*gemini.Classification, error) {
	if a.Classifier == nil {
		return nil, errors.New("classifier not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.Classifier.Classify(ctx, gemini.Request{Title: title, Description: description})
}

func applyClassification(out *models.AIAnalysis, c *gemini.Classification) {
	if c == nil {
		return
	}
	out.Summary = c.Summary
	if models.Contains(models.Categories, c.Category) {
		out.SuggestedCategory = c.Category
	}
	if models.Contains(models.ThreatLevels, c.ThreatLevel) {
		out.SuggestedThreatLevel = c.ThreatLevel
	}
	out.IsCrimeRelated = c.IsCrimeRelated
	out.Confidence = c.Confidence
	if c.Tags != nil {
		out.Tags = c.Tags
	}
	out.Language = c.Language
}
