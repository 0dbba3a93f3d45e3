package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/clients/deepfake"
	"github.com/crimeshield/crimeshield-api/clients/gemini"
	"github.com/crimeshield/crimeshield-api/clients/grammarly"
	"github.com/crimeshield/crimeshield-api/clients/huggingface"
	"github.com/crimeshield/crimeshield-api/config"
)

// FromConfig wires every provider that has credentials configured. The returned
// close func releases the Gemini client.
func FromConfig(ctx context.Context, conf *config.Config) (*Analyzer, func() error) {
	a := New(30 * time.Second)
	closer := func() error { return nil }

	if gc, err := gemini.NewClient(ctx, gemini.Config{APIKey: conf.GeminiAPIKey, ModelName: conf.GeminiModel}); err == nil {
		a.Classifier = gc
		closer = gc.Close
	} else if !errors.Is(err, gemini.ErrNoAPIKey) {
		zap.S().Errorw("gemini disabled", "error", err)
	}

	if gr := grammarly.NewClient(grammarly.Config{APIKey: conf.GrammarlyAPIKey, BaseURL: conf.GrammarlyBaseURL}); gr.Enabled() {
		a.Detector = gr
	}
	if df := deepfake.NewClient(deepfake.Config{User: conf.SightengineUser, Secret: conf.SightengineSecret}); df.Enabled() {
		a.Deepfake = df
	}
	if hf := huggingface.NewClient(huggingface.Config{APIKey: conf.HuggingFaceAPIKey, Model: conf.HuggingFaceModel}); hf.Enabled() {
		a.Sentiments = hf
	}

	zap.S().Infow("analysis providers configured",
		"gemini", a.Classifier != nil,
		"grammarly", a.Detector != nil,
		"deepfake", a.Deepfake != nil,
		"sentiment", a.Sentiments != nil)
	return a, closer
}
