package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/config"
)

// CrawlerHandler exposes the news crawler to admins
type CrawlerHandler struct {
	Crawler CrawlerService
}

// StartHandler launches a crawl with the given options, config defaults otherwise
func (c CrawlerHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	var opts crawler.Options
	if err := decodeJSON(w, r, &opts); err != nil && !errors.Is(err, io.EOF) {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	for _, s := range opts.Sources {
		if !isHTTPURL(s) {
			config.ErrorStatus("invalid source url", http.StatusBadRequest, w, errors.New(s))
			return
		}
	}

	switch err := c.Crawler.Start(opts); {
	case errors.Is(err, crawler.ErrAlreadyRunning):
		config.ErrorStatus("crawler is already running", http.StatusConflict, w, err)
		return
	case errors.Is(err, crawler.ErrNoSources):
		config.ErrorStatus("no sources to crawl", http.StatusBadRequest, w, err)
		return
	case err != nil:
		config.ErrorStatus("failed to start crawler", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, c.Crawler.Status())
}

// StopHandler asks a running crawl to stop after the article in flight
func (c CrawlerHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if !c.Crawler.Stop() {
		writeJSON(w, http.StatusOK, messageResponse{Message: "crawler is not running"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "stop requested"})
}

// StatusHandler returns a snapshot of the crawler progress
func (c CrawlerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Crawler.Status())
}

// PreviewHandler lists candidate article links on a page without storing anything
func (c CrawlerHandler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL   string `json:"url"`
		Limit int    `json:"limit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if !isHTTPURL(req.URL) {
		config.ErrorStatus("url must be an absolute http(s) url", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	links, err := c.Crawler.Preview(ctx, req.URL, req.Limit)
	if err != nil {
		config.ErrorStatus("failed to preview source", http.StatusBadGateway, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": req.URL, "count": len(links), "links": links})
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
