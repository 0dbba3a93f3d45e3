package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// CrawlStarter starts a background crawl
type CrawlStarter interface {
	Start(opts crawler.Options) error
}

// DigestSender mails the daily digest
type DigestSender interface {
	SendDigest(reports []models.Report, since time.Time) error
}

// Config holds the cron specs. An empty spec disables its job.
type Config struct {
	CrawlSchedule  string
	DigestSchedule string
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron    *cron.Cron
	RDB     databases.ReportDatabase
	Crawler CrawlStarter
	Mailer  DigestSender
	conf    Config

	mu         sync.Mutex
	started    bool
	registered bool
}

// NewScheduler creates a new scheduler instance. Jobs run in UTC.
func NewScheduler(rdb databases.ReportDatabase, c CrawlStarter, m DigestSender, conf Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		RDB:     rdb,
		Crawler: c,
		Mailer:  m,
		conf:    conf,
	}
}

// Start registers the jobs on first use and starts the cron runner. Calling
// it while running is a no-op, and a restart after Stop reuses the jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if !s.registered {
		if err := s.register(); err != nil {
			return err
		}
		s.registered = true
	}

	s.cron.Start()
	s.started = true
	zap.S().Infow("scheduler started", "crawl", s.conf.CrawlSchedule, "digest", s.conf.DigestSchedule)
	return nil
}

func (s *Scheduler) register() error {
	var ids []cron.EntryID
	add := func(name, spec string, job func()) error {
		id, err := s.cron.AddFunc(spec, job)
		if err != nil {
			zap.S().Errorw("failed to register "+name+" job", "error", err, "spec", spec)
			for _, id := range ids {
				s.cron.Remove(id)
			}
			return err
		}
		ids = append(ids, id)
		return nil
	}

	if s.conf.CrawlSchedule != "" && s.Crawler != nil {
		if err := add("crawl", s.conf.CrawlSchedule, s.runCrawl); err != nil {
			return err
		}
	}
	if s.conf.DigestSchedule != "" && s.Mailer != nil {
		if err := add("digest", s.conf.DigestSchedule, s.sendDigest); err != nil {
			return err
		}
	}
	return nil
}

// Stop waits for running jobs and stops the scheduler. Calling it twice is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	zap.S().Info("scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) runCrawl() {
	err := s.Crawler.Start(crawler.Options{})
	switch {
	case errors.Is(err, crawler.ErrAlreadyRunning):
		zap.S().Infow("scheduled crawl skipped, a run is in progress")
	case err != nil:
		zap.S().Errorw("scheduled crawl failed to start", "error", err)
	default:
		zap.S().Info("scheduled crawl started")
	}
}

func (s *Scheduler) sendDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.SendDigest(ctx, time.Now()); err != nil {
		zap.S().Errorw("failed to send digest", "error", err)
	}
}

// SendDigest emails the high and critical reports of the 24 hours before now
func (s *Scheduler) SendDigest(ctx context.Context, now time.Time) error {
	since := now.Add(-24 * time.Hour)
	filter := bson.M{
		"threatLevel": bson.M{"$in": []string{"high", "critical"}},
		"status":      bson.M{"$ne": models.StatusHidden},
		"createdAt":   bson.M{"$gte": primitive.NewDateTimeFromTime(since)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)

	reports, err := s.RDB.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	zap.S().Infow("sending daily digest", "reports", len(reports))
	return s.Mailer.SendDigest(reports, since)
}
