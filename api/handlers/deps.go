package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/crimeshield/crimeshield-api/analysis"
	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/clients/nominatim"
	"github.com/crimeshield/crimeshield-api/clients/reddit"
	"github.com/crimeshield/crimeshield-api/clients/storage"
	"github.com/crimeshield/crimeshield-api/clients/translate"
	"github.com/crimeshield/crimeshield-api/models"
)

// AttachmentStore uploads and removes report attachments
type AttachmentStore interface {
	Enabled() bool
	Put(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*storage.Object, error)
	Delete(ctx context.Context, publicID, kind string) error
}

// Geocoder resolves addresses and coordinates
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]nominatim.Place, error)
	Lookup(ctx context.Context, address string) (*nominatim.Place, error)
	Reverse(ctx context.Context, lat, lng float64) (*nominatim.Place, error)
}

// Translator translates free text
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (*translate.Result, error)
}

// ReportAnalyzer runs the AI analysis pipeline
type ReportAnalyzer interface {
	Analyze(ctx context.Context, in analysis.Input) models.AIAnalysis
	Sentiment(ctx context.Context, text string) string
}

// Notifier emails moderators and reporters
type Notifier interface {
	SendAlert(r models.Report) error
	SendModeration(r models.Report, reason string) error
}

// Broadcaster pushes live feed events to connected clients
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// AdminResolver reports whether a request carries a valid admin token
type AdminResolver interface {
	Admin(r *http.Request) (string, bool)
}

// CrawlerService controls the news crawler
type CrawlerService interface {
	Start(opts crawler.Options) error
	Stop() bool
	Status() models.CrawlerStatus
	Preview(ctx context.Context, listingURL string, limit int) ([]models.ArticleLink, error)
}

// RedditClient reads posts from Reddit
type RedditClient interface {
	Search(ctx context.Context, query, subreddit, sort string, limit int) ([]reddit.Post, error)
	Hot(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
	Fetch(ctx context.Context, link string) (*reddit.Post, error)
}

// vendorTimeout bounds calls to third-party APIs made inside a request
const vendorTimeout = 20 * time.Second

// Live feed events
const (
	EventPostCreated   = "post_created"
	EventCommentAdded  = "comment_added"
	EventPostModerated = "post_moderated"
)

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, interface{}) {}
