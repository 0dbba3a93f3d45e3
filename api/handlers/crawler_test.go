package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/api/handlers"
	"github.com/crimeshield/crimeshield-api/models"
)

func TestCrawlerHandler_StartHandler(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		startErr error
		want     int
	}{
		{name: "defaults", body: "", want: http.StatusAccepted},
		{name: "options", body: `{"sources":["https://news.test/local"],"maxArticles":5,"delayMs":100,"analyze":true}`, want: http.StatusAccepted},
		{name: "already running", body: `{}`, startErr: crawler.ErrAlreadyRunning, want: http.StatusConflict},
		{name: "no sources", body: `{}`, startErr: crawler.ErrNoSources, want: http.StatusBadRequest},
		{name: "other error", body: `{}`, startErr: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "bad source", body: `{"sources":["ftp://x"]}`, want: http.StatusBadRequest},
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeCrawler{startErr: tc.startErr}
			h := handlers.CrawlerHandler{Crawler: fc}

			rr := httptest.NewRecorder()
			http.HandlerFunc(h.StartHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/start", strings.NewReader(tc.body)))

			assert.Equal(t, tc.want, rr.Code, rr.Body.String())
		})
	}
}

func TestCrawlerHandler_StartHandlerPassesOptions(t *testing.T) {
	fc := &fakeCrawler{}
	h := handlers.CrawlerHandler{Crawler: fc}

	body := `{"sources":["https://news.test/local"],"maxArticles":5,"translateTo":"en","delayMs":250}`
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.StartHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/start", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, fc.started, 1)
	assert.Equal(t, []string{"https://news.test/local"}, fc.started[0].Sources)
	assert.Equal(t, 5, fc.started[0].MaxArticles)
	assert.Equal(t, "en", fc.started[0].TranslateTo)
	assert.Equal(t, 250, fc.started[0].DelayMs)
	assert.Equal(t, true, decodeBody(t, rr)["running"])
}

func TestCrawlerHandler_StopAndStatus(t *testing.T) {
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	fc := &fakeCrawler{running: true, status: models.CrawlerStatus{Running: true, StartedAt: started, Processed: 3, Errors: []string{}}}
	h := handlers.CrawlerHandler{Crawler: fc}

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.StopHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/stop", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"stop requested"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	http.HandlerFunc(h.StatusHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/crawler/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	m := decodeBody(t, rr)
	assert.Equal(t, true, m["stopRequested"])
	assert.Equal(t, float64(3), m["processed"])

	idle := handlers.CrawlerHandler{Crawler: &fakeCrawler{}}
	rr = httptest.NewRecorder()
	http.HandlerFunc(idle.StopHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/stop", nil))
	assert.JSONEq(t, `{"message":"crawler is not running"}`, rr.Body.String())
}

func TestCrawlerHandler_PreviewHandler(t *testing.T) {
	t.Run("links", func(t *testing.T) {
		fc := &fakeCrawler{links: []models.ArticleLink{{URL: "https://news.test/2024/05/a", Title: "A story"}}}
		h := handlers.CrawlerHandler{Crawler: fc}

		rr := httptest.NewRecorder()
		http.HandlerFunc(h.PreviewHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/preview", strings.NewReader(`{"url":"https://news.test/"}`)))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"url":"https://news.test/","count":1,"links":[{"url":"https://news.test/2024/05/a","title":"A story"}]}`, rr.Body.String())
	})

	t.Run("bad url", func(t *testing.T) {
		h := handlers.CrawlerHandler{Crawler: &fakeCrawler{}}
		rr := httptest.NewRecorder()
		http.HandlerFunc(h.PreviewHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/preview", strings.NewReader(`{"url":"news.test"}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("fetch error", func(t *testing.T) {
		h := handlers.CrawlerHandler{Crawler: &fakeCrawler{err: errors.New("unexpected status 503")}}
		rr := httptest.NewRecorder()
		http.HandlerFunc(h.PreviewHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/crawler/preview", strings.NewReader(`{"url":"https://news.test/"}`)))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}
