package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/databases/mocks"
	"github.com/crimeshield/crimeshield-api/models"
)

type fakeCrawler struct {
	calls int
	err   error
}

func (f *fakeCrawler) Start(opts crawler.Options) error {
	f.calls++
	return f.err
}

type fakeMailer struct {
	reports []models.Report
	since   time.Time
	err     error
}

func (f *fakeMailer) SendDigest(reports []models.Report, since time.Time) error {
	f.reports = reports
	f.since = since
	return f.err
}

func TestStartStopIdempotent(t *testing.T) {
	s := NewScheduler(&mocks.ReportDatabase{}, &fakeCrawler{}, &fakeMailer{}, Config{CrawlSchedule: "*/30 * * * *", DigestSchedule: "0 7 * * *"})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, 2, s.Entries())
	s.Stop()
	s.Stop()
}

func TestRestartKeepsJobsOnce(t *testing.T) {
	s := NewScheduler(&mocks.ReportDatabase{}, &fakeCrawler{}, &fakeMailer{}, Config{CrawlSchedule: "*/30 * * * *", DigestSchedule: "0 7 * * *"})
	require.NoError(t, s.Start())
	s.Stop()
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Equal(t, 2, s.Entries())
}

func TestStartInvalidSpecRegistersNothing(t *testing.T) {
	s := NewScheduler(&mocks.ReportDatabase{}, &fakeCrawler{}, &fakeMailer{}, Config{CrawlSchedule: "*/30 * * * *", DigestSchedule: "every tuesday"})
	assert.Error(t, s.Start())
	assert.Equal(t, 0, s.Entries())
	assert.Error(t, s.Start())
	assert.Equal(t, 0, s.Entries())
}

func TestStartSkipsEmptySchedules(t *testing.T) {
	s := NewScheduler(&mocks.ReportDatabase{}, &fakeCrawler{}, &fakeMailer{}, Config{DigestSchedule: "0 7 * * *"})
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Equal(t, 1, s.Entries())
}

func TestStartInvalidSpec(t *testing.T) {
	s := NewScheduler(&mocks.ReportDatabase{}, &fakeCrawler{}, nil, Config{CrawlSchedule: "every tuesday"})
	assert.Error(t, s.Start())
}

func TestRunCrawlAlreadyRunning(t *testing.T) {
	fc := &fakeCrawler{err: crawler.ErrAlreadyRunning}
	s := NewScheduler(&mocks.ReportDatabase{}, fc, nil, Config{})
	s.runCrawl()
	assert.Equal(t, 1, fc.calls)
}

func TestSendDigest(t *testing.T) {
	now := time.Date(2024, 5, 14, 7, 0, 0, 0, time.UTC)
	since := now.Add(-24 * time.Hour)
	reports := []models.Report{{ID: primitive.NewObjectID(), Title: "Shooting", ThreatLevel: "critical"}}

	db := &mocks.ReportDatabase{}
	db.On("Find", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		created := f["createdAt"].(bson.M)["$gte"].(primitive.DateTime)
		return created.Time().Equal(since)
	}), mock.Anything).Return(reports, nil)

	fm := &fakeMailer{}
	s := NewScheduler(db, nil, fm, Config{})
	require.NoError(t, s.SendDigest(context.Background(), now))
	assert.Equal(t, reports, fm.reports)
	assert.True(t, fm.since.Equal(since))
}

func TestSendDigestFindError(t *testing.T) {
	db := &mocks.ReportDatabase{}
	db.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	fm := &fakeMailer{}
	s := NewScheduler(db, nil, fm, Config{})
	assert.EqualError(t, s.SendDigest(context.Background(), time.Now()), "db down")
	assert.Nil(t, fm.reports)
}
