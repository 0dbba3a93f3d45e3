package handlers_test

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/crimeshield/crimeshield-api/analysis"
	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/clients/gemini"
	"github.com/crimeshield/crimeshield-api/clients/nominatim"
	"github.com/crimeshield/crimeshield-api/clients/reddit"
	"github.com/crimeshield/crimeshield-api/clients/storage"
	"github.com/crimeshield/crimeshield-api/clients/translate"
	"github.com/crimeshield/crimeshield-api/models"
)

type fakeGeocoder struct {
	place  *nominatim.Place
	places []nominatim.Place
	err    error
	calls  int
}

func (f *fakeGeocoder) Search(_ context.Context, _ string, _ int) ([]nominatim.Place, error) {
	f.calls++
	return f.places, f.err
}

func (f *fakeGeocoder) Lookup(_ context.Context, _ string) (*nominatim.Place, error) {
	f.calls++
	return f.place, f.err
}

func (f *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (*nominatim.Place, error) {
	f.calls++
	return f.place, f.err
}

type fakeAnalyzer struct {
	mu        sync.Mutex
	out       models.AIAnalysis
	sentiment string
	cls       *gemini.Classification
	clsErr    error
	inputs    []analysis.Input
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in analysis.Input) models.AIAnalysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return f.out
}

func (f *fakeAnalyzer) Sentiment(_ context.Context, _ string) string {
	if f.sentiment == "" {
		return "neutral"
	}
	return f.sentiment
}

func (f *fakeAnalyzer) Classify(_ context.Context, _, _ string) (*gemini.Classification, error) {
	return f.cls, f.clsErr
}

type fakeStorage struct {
	enabled bool
	err     error
	puts    []string
	deletes []string
}

func (f *fakeStorage) Enabled() bool { return f.enabled }

func (f *fakeStorage) Put(_ context.Context, r io.Reader, filename, contentType string, _ int64) (*storage.Object, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	kind, err := storage.Kind(contentType, filename)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, filename)
	return &storage.Object{URL: "https://cdn.test/" + filename, PublicID: "reports/" + filename, Type: kind}, nil
}

func (f *fakeStorage) Delete(_ context.Context, publicID, _ string) error {
	f.deletes = append(f.deletes, publicID)
	return nil
}

type fakeNotifier struct {
	alerts      chan models.Report
	moderations chan string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{alerts: make(chan models.Report, 4), moderations: make(chan string, 4)}
}

func (f *fakeNotifier) SendAlert(r models.Report) error {
	f.alerts <- r
	return nil
}

func (f *fakeNotifier) SendModeration(r models.Report, reason string) error {
	f.moderations <- reason
	return nil
}

type fakeFeed struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeFeed) Broadcast(event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeFeed) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakeAdmins struct {
	email string
}

func (f fakeAdmins) Admin(_ *http.Request) (string, bool) {
	return f.email, f.email != ""
}

type fakeCrawler struct {
	startErr error
	started  []crawler.Options
	running  bool
	status   models.CrawlerStatus
	links    []models.ArticleLink
	err      error
}

func (f *fakeCrawler) Start(opts crawler.Options) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, opts)
	f.status.Running = true
	return nil
}

func (f *fakeCrawler) Stop() bool {
	if !f.running {
		return false
	}
	f.status.StopRequested = true
	return true
}

func (f *fakeCrawler) Status() models.CrawlerStatus { return f.status }

func (f *fakeCrawler) Preview(_ context.Context, _ string, _ int) ([]models.ArticleLink, error) {
	return f.links, f.err
}

type fakeReddit struct {
	posts []reddit.Post
	post  *reddit.Post
	err   error
	query string
}

func (f *fakeReddit) Search(_ context.Context, query, _, _ string, _ int) ([]reddit.Post, error) {
	f.query = query
	return f.posts, f.err
}

func (f *fakeReddit) Hot(_ context.Context, _ string, _ int) ([]reddit.Post, error) {
	return f.posts, f.err
}

func (f *fakeReddit) Fetch(_ context.Context, _ string) (*reddit.Post, error) {
	return f.post, f.err
}

type fakeTranslator struct {
	res *translate.Result
	err error
}

func (f fakeTranslator) Translate(_ context.Context, _, _, _ string) (*translate.Result, error) {
	return f.res, f.err
}
