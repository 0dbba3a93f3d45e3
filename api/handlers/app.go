package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/analysis"
	"github.com/crimeshield/crimeshield-api/api"
	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/api/scheduler"
	"github.com/crimeshield/crimeshield-api/clients/mailer"
	"github.com/crimeshield/crimeshield-api/clients/nominatim"
	"github.com/crimeshield/crimeshield-api/clients/reddit"
	"github.com/crimeshield/crimeshield-api/clients/storage"
	"github.com/crimeshield/crimeshield-api/clients/translate"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// requestTimeout bounds a whole request, vendor calls included
const requestTimeout = 90 * time.Second

// App stores the router, db connection and vendor clients, so they can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	Feed       *Hub
	Crawler    *crawler.Crawler
	Scheduler  *scheduler.Scheduler
	Analyzer   *analysis.Analyzer
	Storage    AttachmentStore
	Geocoder   Geocoder
	Translator Translator
	Mailer     *mailer.Mailer
	Reddit     RedditClient

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	closers  []func() error
}

// New fills in any missing service with its unconfigured default and returns
// a router with every route registered
func (a *App) New() *mux.Router {
	rdb := databases.NewReportDatabase(a.dbHelper)
	a.defaults(rdb)

	adminAuth := api.NewAdminAuth(databases.NewAdminDatabase(a.dbHelper), a.Config.JWTSecret)
	admin := func(h http.HandlerFunc) http.Handler { return adminAuth.AdminMiddleware(h) }

	var notifier Notifier
	if a.Mailer.Enabled() {
		notifier = a.Mailer
	}

	p := Post{DB: rdb, Storage: a.Storage, Geocoder: a.Geocoder, Analyzer: a.Analyzer, Mailer: notifier, Feed: a.Feed, Admins: adminAuth}
	c := Comment{DB: rdb, Analyzer: a.Analyzer, Feed: a.Feed, Admins: adminAuth}
	re := Reaction{DB: rdb}
	cr := CrawlerHandler{Crawler: a.Crawler}
	rd := Reddit{DB: rdb, Client: a.Reddit, Classifier: a.Analyzer, Feed: a.Feed}
	t := Tools{DB: rdb, Geocoder: a.Geocoder, Translator: a.Translator, Analyzer: a.Analyzer}
	m := Moderation{DB: rdb, Mailer: notifier, Feed: a.Feed, Storage: a.Storage}

	r := api.New()
	r.Use(
		api.CORSMiddleware(a.Config.CORSOrigins),
		api.MetricsMiddleware,
		api.TimeoutMiddleware(requestTimeout, "/ws/"),
	)
	// preflight requests never match a method-bound route, so they land here
	r.MethodNotAllowedHandler = api.CORSMiddleware(a.Config.CORSOrigins)(http.HandlerFunc(methodNotAllowed))

	r.HandleFunc("/ws/feed", a.Feed.FeedHandler).Methods("GET")

	// reports; fixed paths before {id}
	r.HandleFunc("/posts", p.PostsHandler).Methods("GET")
	r.HandleFunc("/posts", p.CreatePostHandler).Methods("POST")
	r.HandleFunc("/posts/heatmap", p.HeatmapHandler).Methods("GET")
	r.HandleFunc("/posts/leaderboard", p.LeaderboardHandler).Methods("GET")
	r.HandleFunc("/posts/categories", p.CategoriesHandler).Methods("GET")
	r.HandleFunc("/posts/{id}", p.PostByIDHandler).Methods("GET")
	r.HandleFunc("/posts/{id}", p.UpdatePostHandler).Methods("PUT")
	r.HandleFunc("/posts/{id}", p.DeletePostHandler).Methods("DELETE")
	r.HandleFunc("/posts/{id}/flag", p.FlagPostHandler).Methods("POST")
	r.HandleFunc("/posts/{id}/comments", c.CreateCommentHandler).Methods("POST")
	r.HandleFunc("/posts/{id}/comments/{commentId}", c.DeleteCommentHandler).Methods("DELETE")
	r.HandleFunc("/posts/{id}/reactions", re.ReactHandler).Methods("POST")
	r.HandleFunc("/posts/{id}/votes", re.VoteHandler).Methods("POST")
	r.Handle("/posts/{id}/analyze", admin(t.ReanalyzeHandler)).Methods("POST")

	r.Handle("/crawler/start", admin(cr.StartHandler)).Methods("POST")
	r.Handle("/crawler/stop", admin(cr.StopHandler)).Methods("POST")
	r.Handle("/crawler/status", admin(cr.StatusHandler)).Methods("GET")
	r.Handle("/crawler/preview", admin(cr.PreviewHandler)).Methods("POST")

	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.HandleFunc("/reddit/search", rd.SearchHandler).Methods("GET")
	apiRoutes.HandleFunc("/reddit/subreddit/{name}", rd.SubredditHandler).Methods("GET")
	apiRoutes.Handle("/reddit/import", admin(rd.ImportHandler)).Methods("POST")
	apiRoutes.HandleFunc("/geocode", t.GeocodeHandler).Methods("GET")
	apiRoutes.HandleFunc("/geocode/reverse", t.ReverseGeocodeHandler).Methods("GET")
	apiRoutes.HandleFunc("/translate", t.TranslateHandler).Methods("POST")
	apiRoutes.HandleFunc("/analyze", t.AnalyzeHandler).Methods("POST")

	r.HandleFunc("/admin/login", adminAuth.Login).Methods("POST")
	adminRoutes := r.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(adminAuth.AdminMiddleware)
	adminRoutes.HandleFunc("/posts", m.QueueHandler).Methods("GET")
	adminRoutes.HandleFunc("/posts/{id}/status", m.StatusHandler).Methods("PUT")
	adminRoutes.HandleFunc("/posts/{id}", m.DeleteHandler).Methods("DELETE")
	adminRoutes.HandleFunc("/posts/{id}/comments/{commentId}", c.DeleteCommentHandler).Methods("DELETE")

	// swagger docs hosted at "/"
	r.PathPrefix("/docs/").Handler(http.StripPrefix("/docs/", http.FileServer(http.Dir("./docs/"))))
	return r
}

func (a *App) defaults(rdb databases.ReportDatabase) {
	if a.Feed == nil {
		a.Feed = NewHub(a.Config.CORSOrigins)
	}
	if a.Analyzer == nil {
		a.Analyzer = analysis.New(30 * time.Second)
	}
	if a.Storage == nil {
		a.Storage = storage.NewWithUploader(nil)
	}
	if a.Geocoder == nil {
		a.Geocoder = nominatim.NewClient(nominatim.Config{BaseURL: a.Config.NominatimURL})
	}
	if a.Reddit == nil {
		a.Reddit = reddit.NewClient(reddit.Config{UserAgent: a.Config.RedditUserAgent})
	}
	if a.Mailer == nil {
		a.Mailer = mailer.New(a.Config.SendgridAPIKey, a.Config.AlertEmails, a.Config.BaseURL)
	}
	if a.Crawler == nil {
		var tr crawler.Translator
		if a.Translator != nil {
			tr = a.Translator
		}
		a.Crawler = crawler.New(rdb, a.Analyzer, tr, crawler.Options{
			Sources:     a.Config.CrawlerSources,
			MaxArticles: a.Config.CrawlerMaxArticles,
			Delay:       a.Config.CrawlerDelay,
			Concurrency: a.Config.CrawlerConcurrency,
		})
		feed := a.Feed
		a.Crawler.OnInsert = func(rep models.Report) { feed.Broadcast(EventPostCreated, rep) }
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	config.ErrorStatus("method not allowed", http.StatusMethodNotAllowed, w, nil)
}

// Initialize is invoked by main to connect with the database, build the vendor
// clients and create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}
	a.client = client

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	zap.S().Info("crimeshield-api has connected to the database")

	rdb := databases.NewReportDatabase(a.dbHelper)
	if err := rdb.EnsureIndexes(connectCtx); err != nil {
		zap.S().Warnw("failed to ensure report indexes", "error", err)
	}
	if err := databases.NewAdminDatabase(a.dbHelper).EnsureIndexes(connectCtx); err != nil {
		zap.S().Warnw("failed to ensure admin indexes", "error", err)
	}
	if a.Config.JWTSecret == "" {
		zap.S().Warn("JWT_SECRET is not set, admin routes will reject every token")
	}

	analyzer, closeAnalyzer := analysis.FromConfig(ctx, &a.Config)
	a.Analyzer = analyzer
	a.closers = append(a.closers, closeAnalyzer)

	store, err := storage.New(a.Config.CloudinaryURL)
	if err != nil {
		zap.S().Errorw("attachment uploads disabled", "error", err)
		store = storage.NewWithUploader(nil)
	}
	a.Storage = store

	if tr := translate.NewClient(translate.Config{BaseURL: a.Config.TranslateURL, APIKey: a.Config.TranslateAPIKey}); tr.Enabled() {
		a.Translator = tr
	}

	a.Router = a.New()

	a.Scheduler = scheduler.NewScheduler(rdb, a.Crawler, a.Mailer, scheduler.Config{
		CrawlSchedule:  a.Config.CrawlerSchedule,
		DigestSchedule: a.Config.DigestSchedule,
	})
	return nil
}

// Close stops background work and disconnects from the database
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Crawler != nil {
		a.Crawler.Stop()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			zap.S().Warnw("failed to close client", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}
