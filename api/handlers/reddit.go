package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/api/crawler"
	"github.com/crimeshield/crimeshield-api/clients/reddit"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// Reddit exported for testing purposes
type Reddit struct {
	DB         databases.ReportDatabase
	Client     RedditClient
	Classifier crawler.Classifier
	Feed       Broadcaster
}

// SearchHandler proxies a Reddit search
func (rd Reddit) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		config.ErrorStatus("q is required", http.StatusBadRequest, w, nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	posts, err := rd.Client.Search(ctx, q, r.URL.Query().Get("subreddit"), r.URL.Query().Get("sort"), queryInt(r, "limit", reddit.DefaultLimit))
	if err != nil {
		config.ErrorStatus("failed to search reddit", http.StatusBadGateway, w, err)
		return
	}
	if posts == nil {
		posts = []reddit.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// SubredditHandler returns the hot posts of a subreddit
func (rd Reddit) SubredditHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name == "" {
		config.ErrorStatus("subreddit is required", http.StatusBadRequest, w, nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	posts, err := rd.Client.Hot(ctx, name, queryInt(r, "limit", reddit.DefaultLimit))
	if err != nil {
		if errors.Is(err, reddit.ErrNotFound) {
			config.ErrorStatus("subreddit not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get subreddit", http.StatusBadGateway, w, err)
		return
	}
	if posts == nil {
		posts = []reddit.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// ImportHandler stores a Reddit post as a report keyed by its URL
func (rd Reddit) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permalink string `json:"permalink"`
		URL       string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	link := req.Permalink
	if link == "" {
		link = req.URL
	}
	if _, err := reddit.Permalink(link); err != nil {
		config.ErrorStatus("invalid reddit link", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	post, err := rd.Client.Fetch(ctx, link)
	switch {
	case errors.Is(err, reddit.ErrNotFound):
		config.ErrorStatus("reddit post not found", http.StatusNotFound, w, err)
		return
	case errors.Is(err, reddit.ErrInvalidURL):
		config.ErrorStatus("invalid reddit link", http.StatusBadRequest, w, err)
		return
	case err != nil:
		config.ErrorStatus("failed to fetch reddit post", http.StatusBadGateway, w, err)
		return
	}

	report := RedditReport(*post)
	if rd.Classifier != nil {
		if cls, err := rd.Classifier.Classify(ctx, report.Title, report.Description); err != nil {
			zap.S().Warnw("reddit post classification failed", "url", report.SourceURL, "error", err)
		} else {
			crawler.ApplyClassification(&report, cls)
		}
	}

	inserted, err := crawler.Upsert(ctx, rd.DB, &report)
	if err != nil {
		config.ErrorStatus("failed to store reddit post", http.StatusInternalServerError, w, err)
		return
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
		normalizeReport(&report)
		if rd.Feed != nil {
			rd.Feed.Broadcast(EventPostCreated, report)
		}
	} else if stored, err := rd.DB.FindOne(ctx, bson.M{"sourceHash": report.SourceHash}); err == nil {
		report = *stored
	}
	normalizeReport(&report)
	zap.S().Infow("reddit post imported", "url", report.SourceURL, "inserted", inserted)
	writeJSON(w, status, report)
}

// RedditReport converts a Reddit post into an unclassified report
func RedditReport(p reddit.Post) models.Report {
	desc := strings.TrimSpace(p.Text)
	if desc == "" {
		desc = p.Title
	}
	if runes := []rune(desc); len(runes) > 5000 {
		desc = string(runes[:5000])
	}
	r := models.Report{
		Title:       p.Title,
		Description: desc,
		Category:    "other",
		ThreatLevel: "low",
		Source:      models.SourceReddit,
		SourceURL:   p.PostURL(),
		SourceHash:  crawler.Hash(p.PostURL()),
		ImageURL:    p.ImageURL,
		Sentiment:   models.Sentiment{Overall: "neutral"},
	}
	if !p.CreatedAt.IsZero() {
		r.PublishedAt = primitive.NewDateTimeFromTime(p.CreatedAt)
	}
	return r
}
