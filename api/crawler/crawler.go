// Package crawler imports crime news from configured listing pages.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/crimeshield/crimeshield-api/clients/gemini"
	"github.com/crimeshield/crimeshield-api/clients/translate"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/logging"
	"github.com/crimeshield/crimeshield-api/models"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is in progress
	ErrAlreadyRunning = errors.New("crawler is already running")
	// ErrNoSources is returned when neither the request nor the config name a source
	ErrNoSources = errors.New("no crawler sources configured")
)

const (
	maxResponseBodyBytes = 5 * 1024 * 1024
	maxStatusErrors      = 20
	userAgent            = "Mozilla/5.0 (compatible; CrimeShieldBot/1.0)"
)

// Classifier categorises an article
type Classifier interface {
	Classify(ctx context.Context, title, description string) (*gemini.Classification, error)
}

// Translator translates article text
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (*translate.Result, error)
}

// Options configure a single run. Zero values fall back to the crawler defaults.
type Options struct {
	Sources     []string      `json:"sources"`
	MaxArticles int           `json:"maxArticles"`
	TranslateTo string        `json:"translateTo"`
	Analyze     bool          `json:"analyze"`
	Delay       time.Duration `json:"-"`
	DelayMs     int           `json:"delayMs"`
	Concurrency int           `json:"concurrency"`
}

// Crawler runs at most one crawl at a time and exposes its progress
type Crawler struct {
	db         databases.ReportDatabase
	classifier Classifier
	translator Translator
	httpClient *http.Client
	defaults   Options
	log        *zap.SugaredLogger

	// OnInsert, when set, is called for every newly inserted report
	OnInsert func(models.Report)

	mu     sync.Mutex
	status models.CrawlerStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Crawler. classifier and translator may be nil.
func New(db databases.ReportDatabase, classifier Classifier, translator Translator, defaults Options) *Crawler {
	if defaults.MaxArticles <= 0 {
		defaults.MaxArticles = 20
	}
	if defaults.Delay <= 0 {
		defaults.Delay = 2 * time.Second
	}
	if defaults.Concurrency <= 0 {
		defaults.Concurrency = 1
	}
	return &Crawler{
		db:         db,
		classifier: classifier,
		translator: translator,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		defaults:   defaults,
		log:        logging.New("crawler"),
		status:     models.CrawlerStatus{Errors: []string{}},
	}
}

func (c *Crawler) merge(opts Options) Options {
	if len(opts.Sources) == 0 {
		opts.Sources = c.defaults.Sources
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = c.defaults.MaxArticles
	}
	if opts.Delay <= 0 && opts.DelayMs > 0 {
		opts.Delay = time.Duration(opts.DelayMs) * time.Millisecond
	}
	if opts.Delay <= 0 {
		opts.Delay = c.defaults.Delay
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = c.defaults.Concurrency
	}
	if opts.TranslateTo == "" {
		opts.TranslateTo = c.defaults.TranslateTo
	}
	return opts
}

// Start launches a run in the background
func (c *Crawler) Start(opts Options) error {
	opts = c.merge(opts)
	if len(opts.Sources) == 0 {
		return ErrNoSources
	}

	c.mu.Lock()
	if c.status.Running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.status = models.CrawlerStatus{
		Running:   true,
		StartedAt: time.Now().UTC(),
		Sources:   opts.Sources,
		Errors:    []string{},
	}
	done := c.done
	c.mu.Unlock()

	crawlerRuns.Inc()
	crawlerRunning.Set(1)
	go func() {
		defer close(done)
		defer cancel()
		c.run(ctx, opts)
	}()
	return nil
}

// Run starts a run and blocks until it finishes or ctx is cancelled
func (c *Crawler) Run(ctx context.Context, opts Options) error {
	if err := c.Start(opts); err != nil {
		return err
	}
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		c.Stop()
		<-done
	}
	return nil
}

// Stop asks the current run to end after the items in flight. It reports
// whether a run was in progress.
func (c *Crawler) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.Running {
		return false
	}
	c.status.StopRequested = true
	if c.cancel != nil {
		c.cancel()
	}
	return true
}

// Status returns a snapshot of the current or last run
func (c *Crawler) Status() models.CrawlerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.Sources = append([]string(nil), c.status.Sources...)
	s.Errors = append([]string{}, c.status.Errors...)
	return s
}

// Preview lists candidate article links of a listing page without storing anything
func (c *Crawler) Preview(ctx context.Context, listingURL string, limit int) ([]models.ArticleLink, error) {
	body, err := c.fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	links, err := ExtractLinks(listingURL, body)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (c *Crawler) stopping(ctx context.Context) bool {
	c.mu.Lock()
	stop := c.status.StopRequested
	c.mu.Unlock()
	return stop || ctx.Err() != nil
}

func (c *Crawler) update(fn func(s *models.CrawlerStatus)) {
	c.mu.Lock()
	fn(&c.status)
	c.mu.Unlock()
}

func (c *Crawler) fail(target string, err error) {
	msg := fmt.Sprintf("%s: %v", target, err)
	c.log.Warnw("crawl item failed", "url", target, "error", err)
	crawlerArticles.WithLabelValues("failed").Inc()
	c.update(func(s *models.CrawlerStatus) {
		s.Failed++
		s.LastError = msg
		s.Errors = append(s.Errors, msg)
		if len(s.Errors) > maxStatusErrors {
			s.Errors = s.Errors[len(s.Errors)-maxStatusErrors:]
		}
	})
}

func (c *Crawler) run(ctx context.Context, opts Options) {
	c.log.Infow("crawl started", "sources", opts.Sources, "maxArticles", opts.MaxArticles, "concurrency", opts.Concurrency)
	limiter := rate.NewLimiter(rate.Every(opts.Delay), 1)

	for _, source := range opts.Sources {
		if c.stopping(ctx) {
			break
		}
		c.crawlSource(ctx, limiter, source, opts)
		c.update(func(s *models.CrawlerStatus) { s.SourcesDone++ })
	}

	c.mu.Lock()
	c.status.Running = false
	c.status.CurrentURL = ""
	c.status.FinishedAt = time.Now().UTC()
	final := c.status
	c.mu.Unlock()
	crawlerRunning.Set(0)

	c.log.Infow("crawl finished",
		"processed", final.Processed,
		"inserted", final.Inserted,
		"updated", final.Updated,
		"skipped", final.Skipped,
		"failed", final.Failed,
		"stopped", final.StopRequested)
}

func (c *Crawler) crawlSource(ctx context.Context, limiter *rate.Limiter, source string, opts Options) {
	c.update(func(s *models.CrawlerStatus) { s.CurrentURL = source })
	if err := limiter.Wait(ctx); err != nil {
		return
	}
	body, err := c.fetch(ctx, source)
	if err != nil {
		if errors.Is(err, context.Canceled) && c.stopping(ctx) {
			return
		}
		c.fail(source, err)
		return
	}
	links, err := ExtractLinks(source, body)
	if err != nil {
		c.fail(source, err)
		return
	}
	if len(links) > opts.MaxArticles {
		links = links[:opts.MaxArticles]
	}
	c.update(func(s *models.CrawlerStatus) { s.Discovered += len(links) })

	// Stop cancels ctx, but an article already being processed finishes on itemCtx
	itemCtx := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, link := range links {
		if c.stopping(gctx) {
			break
		}
		link := link
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}
			if c.stopping(gctx) {
				return nil
			}
			c.processArticle(itemCtx, link, opts)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Crawler) processArticle(ctx context.Context, link models.ArticleLink, opts Options) {
	c.update(func(s *models.CrawlerStatus) { s.CurrentURL = link.URL })

	body, err := c.fetch(ctx, link.URL)
	if err != nil {
		c.fail(link.URL, err)
		return
	}
	article, err := Extract(link.URL, body)
	if err != nil {
		c.fail(link.URL, err)
		return
	}
	if article.Title == "" {
		article.Title = link.Title
	}
	if article.Title == "" || (article.Description == "" && article.Body == "") {
		crawlerArticles.WithLabelValues("skipped").Inc()
		c.update(func(s *models.CrawlerStatus) { s.Processed++; s.Skipped++ })
		return
	}

	if opts.TranslateTo != "" && c.translator != nil {
		c.translateArticle(ctx, article, opts.TranslateTo)
	}

	report := models.Report{
		Title:       article.Title,
		Description: article.Description,
		Category:    "other",
		ThreatLevel: "low",
		Source:      models.SourceNews,
		SourceURL:   link.URL,
		SourceHash:  Hash(link.URL),
		ImageURL:    article.ImageURL,
	}
	if !article.PublishedAt.IsZero() {
		report.PublishedAt = primitive.NewDateTimeFromTime(article.PublishedAt)
	}

	if opts.Analyze && c.classifier != nil {
		cls, err := c.classifier.Classify(ctx, article.Title, article.Description+"\n\n"+article.Body)
		if err != nil {
			c.log.Warnw("article classification failed", "url", link.URL, "error", err)
		} else {
			ApplyClassification(&report, cls)
		}
	}

	inserted, err := Upsert(ctx, c.db, &report)
	if err != nil {
		c.fail(link.URL, err)
		return
	}
	if inserted {
		crawlerArticles.WithLabelValues("inserted").Inc()
		c.update(func(s *models.CrawlerStatus) { s.Processed++; s.Inserted++ })
		if c.OnInsert != nil {
			c.OnInsert(report)
		}
		return
	}
	crawlerArticles.WithLabelValues("updated").Inc()
	c.update(func(s *models.CrawlerStatus) { s.Processed++; s.Updated++ })
}

func (c *Crawler) translateArticle(ctx context.Context, a *Article, target string) {
	title, err := c.translator.Translate(ctx, a.Title, "auto", target)
	if err != nil {
		c.log.Warnw("article translation failed", "url", a.URL, "error", err)
		return
	}
	if title.SourceLanguage == title.TargetLanguage {
		return
	}
	a.Title = title.Text
	if a.Description != "" {
		if desc, err := c.translator.Translate(ctx, a.Description, title.SourceLanguage, target); err == nil {
			a.Description = desc.Text
		}
	}
}

// ApplyClassification copies a Gemini classification onto r and records it as the
// report's analysis. Unknown categories and threat levels keep the current values.
func ApplyClassification(r *models.Report, cls *gemini.Classification) {
	if models.Contains(models.Categories, cls.Category) {
		r.Category = cls.Category
	}
	if models.Contains(models.ThreatLevels, cls.ThreatLevel) {
		r.ThreatLevel = cls.ThreatLevel
	}
	tags := cls.Tags
	if tags == nil {
		tags = []string{}
	}
	r.AIAnalysis = &models.AIAnalysis{
		Summary:              cls.Summary,
		SuggestedCategory:    r.Category,
		SuggestedThreatLevel: r.ThreatLevel,
		IsCrimeRelated:       cls.IsCrimeRelated,
		Confidence:           cls.Confidence,
		Tags:                 tags,
		AIGeneratedScore:     -1,
		DeepfakeScore:        -1,
		Sentiment:            "neutral",
		Language:             cls.Language,
		Providers:            map[string]string{"gemini": "ok"},
		AnalyzedAt:           primitive.NewDateTimeFromTime(time.Now()),
	}
}

func (c *Crawler) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
}

// Upsert stores an externally sourced report keyed by its sourceHash. Content
// fields are refreshed on every call while comments, reactions and votes of an
// existing report are kept. It reports whether a new document was created and,
// if so, sets r.ID.
func Upsert(ctx context.Context, db databases.ReportDatabase, r *models.Report) (bool, error) {
	if r.SourceHash == "" {
		r.SourceHash = Hash(r.SourceURL)
	}
	now := primitive.NewDateTimeFromTime(time.Now())

	set := bson.M{
		"title":       r.Title,
		"description": r.Description,
		"sourceUrl":   r.SourceURL,
		"imageUrl":    r.ImageURL,
		"updatedAt":   now,
	}
	if r.PublishedAt != 0 {
		set["publishedAt"] = r.PublishedAt
	}
	onInsert := bson.M{
		"source":            r.Source,
		"status":            models.StatusActive,
		"userEmail":         r.UserEmail,
		"anonymous":         false,
		"attachments":       []models.Attachment{},
		"comments":          []models.Comment{},
		"reactions":         []models.Reaction{},
		"authenticityVotes": []models.AuthenticityVote{},
		"sentiment":         models.Sentiment{Overall: "neutral"},
		"createdAt":         now,
	}
	// an unclassified re-crawl keeps the stored classification
	if r.AIAnalysis != nil {
		set["aiAnalysis"] = r.AIAnalysis
		set["category"] = r.Category
		set["threatLevel"] = r.ThreatLevel
	} else {
		onInsert["category"] = r.Category
		onInsert["threatLevel"] = r.ThreatLevel
	}
	if r.Location.Address != "" || r.Location.HasCoordinates() {
		set["location"] = r.Location
	}

	update := bson.M{"$set": set, "$setOnInsert": onInsert}

	res, err := db.UpdateOne(ctx, bson.M{"sourceHash": r.SourceHash}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	if res.UpsertedCount == 0 {
		return false, nil
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		r.ID = id
	}
	r.Status = models.StatusActive
	r.CreatedAt = now
	r.UpdatedAt = now
	return true, nil
}
