package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/crimeshield/crimeshield-api/analysis"
	"github.com/crimeshield/crimeshield-api/api"
	"github.com/crimeshield/crimeshield-api/clients/nominatim"
	"github.com/crimeshield/crimeshield-api/clients/translate"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
)

// Tools groups the geocoding, translation and analysis helpers
type Tools struct {
	DB         databases.ReportDatabase
	Geocoder   Geocoder
	Translator Translator
	Analyzer   ReportAnalyzer
}

// GeocodeHandler searches places matching ?q=
func (t Tools) GeocodeHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		config.ErrorStatus("q is required", http.StatusBadRequest, w, nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	places, err := t.Geocoder.Search(ctx, q, queryInt(r, "limit", 5))
	if err != nil {
		config.ErrorStatus("failed to geocode", http.StatusBadGateway, w, err)
		return
	}
	if places == nil {
		places = []nominatim.Place{}
	}
	writeJSON(w, http.StatusOK, places)
}

// ReverseGeocodeHandler resolves ?lat=&lng= to a place
func (t Tools) ReverseGeocodeHandler(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		config.ErrorStatus("lat and lng must be valid coordinates", http.StatusBadRequest, w, nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	place, err := t.Geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		if errors.Is(err, nominatim.ErrNoResults) {
			config.ErrorStatus("no place found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to reverse geocode", http.StatusBadGateway, w, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

// TranslateHandler translates {text, target, source}
func (t Tools) TranslateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		Target string `json:"target"`
		Source string `json:"source"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.Target) == "" {
		config.ErrorStatus("text and target are required", http.StatusBadRequest, w, nil)
		return
	}
	if _, err := translate.NormalizeLanguage(req.Target); err != nil {
		config.ErrorStatus("invalid target language", http.StatusBadRequest, w, err)
		return
	}
	if t.Translator == nil {
		config.ErrorStatus("translation is not configured", http.StatusServiceUnavailable, w, translate.ErrDisabled)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), vendorTimeout)
	defer cancel()

	res, err := t.Translator.Translate(ctx, req.Text, req.Source, req.Target)
	if err != nil {
		if errors.Is(err, translate.ErrDisabled) {
			config.ErrorStatus("translation is not configured", http.StatusServiceUnavailable, w, err)
			return
		}
		config.ErrorStatus("failed to translate", http.StatusBadGateway, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AnalyzeHandler runs the analysis pipeline on ad-hoc text without storing it
func (t Tools) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		ImageURLs   []string `json:"imageUrls"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if textLen(req.Title) == 0 && textLen(req.Description) == 0 {
		config.ErrorStatus("title or description is required", http.StatusBadRequest, w, nil)
		return
	}
	for _, u := range req.ImageURLs {
		if !isHTTPURL(u) {
			config.ErrorStatus("imageUrls must be absolute http(s) urls", http.StatusBadRequest, w, nil)
			return
		}
	}
	out := t.Analyzer.Analyze(r.Context(), analysis.Input{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		ImageURLs:   req.ImageURLs,
	})
	writeJSON(w, http.StatusOK, out)
}

// ReanalyzeHandler re-runs the analysis of a stored report and saves it
func (t Tools) ReanalyzeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	report, err := t.DB.FindOne(ctx, bson.M{"_id": id})
	cancel()
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}

	in := analysis.Input{Title: report.Title, Description: report.Description}
	for _, a := range report.Attachments {
		if a.Type == "image" {
			in.ImageURLs = append(in.ImageURLs, a.URL)
		}
	}
	out := t.Analyzer.Analyze(r.Context(), in)

	ctx, cancel = api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := t.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"aiAnalysis": out, "updatedAt": now()}}); err != nil {
		dbError("failed to store analysis", w, err)
		return
	}
	report.AIAnalysis = &out
	normalizeReport(report)
	writeJSON(w, http.StatusOK, report)
}
