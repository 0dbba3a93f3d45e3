package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string
	CORSOrigins  []string
	JWTSecret    string

	GeminiAPIKey      string
	GeminiModel       string
	GrammarlyAPIKey   string
	GrammarlyBaseURL  string
	SightengineUser   string
	SightengineSecret string
	HuggingFaceAPIKey string
	HuggingFaceModel  string
	TranslateURL      string
	TranslateAPIKey   string
	NominatimURL      string
	RedditUserAgent   string

	CloudinaryURL  string
	SendgridAPIKey string
	AlertEmails    []string

	CrawlerSources     []string
	CrawlerMaxArticles int
	CrawlerDelay       time.Duration
	CrawlerConcurrency int
	CrawlerSchedule    string
	DigestSchedule     string
}

// New sets up all config related services. Values from .env and .env.local are
// loaded first; variables already present in the environment win.
func New() *Config {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			zap.S().Warnw("failed to load env file", "file", f, "error", err)
		}
	}

	env := getenv("ENV", "production")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: getenv("DB_NAME", "crimeshield"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         getenv("PORT", "8080"),
		Env:          env,
		CORSOrigins:  splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		JWTSecret:    os.Getenv("JWT_SECRET"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		GrammarlyAPIKey:   os.Getenv("GRAMMARLY_API_KEY"),
		GrammarlyBaseURL:  getenv("GRAMMARLY_BASE_URL", "https://api.grammarly.com"),
		SightengineUser:   os.Getenv("SIGHTENGINE_USER"),
		SightengineSecret: os.Getenv("SIGHTENGINE_SECRET"),
		HuggingFaceAPIKey: os.Getenv("HUGGINGFACE_API_KEY"),
		HuggingFaceModel:  getenv("HUGGINGFACE_MODEL", "cardiffnlp/twitter-roberta-base-sentiment-latest"),
		TranslateURL:      os.Getenv("TRANSLATE_URL"),
		TranslateAPIKey:   os.Getenv("TRANSLATE_API_KEY"),
		NominatimURL:      getenv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		RedditUserAgent:   getenv("REDDIT_USER_AGENT", "crimeshield-api/1.0"),

		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		AlertEmails:    splitList(os.Getenv("ALERT_EMAILS")),

		CrawlerSources:     splitList(os.Getenv("CRAWLER_SOURCES")),
		CrawlerMaxArticles: getenvInt("CRAWLER_MAX_ARTICLES", 20),
		CrawlerDelay:       getenvDuration("CRAWLER_DELAY", 2*time.Second),
		CrawlerConcurrency: getenvInt("CRAWLER_CONCURRENCY", 1),
		CrawlerSchedule:    os.Getenv("CRAWLER_SCHEDULE"),
		DigestSchedule:     getenv("DIGEST_SCHEDULE", "0 7 * * *"),
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	zap.S().Errorw(message, "error", errMsg, "status", httpStatusCode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: errMsg},
	})
	_, _ = w.Write(b)
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// bare numbers are milliseconds
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
