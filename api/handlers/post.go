package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/analysis"
	"github.com/crimeshield/crimeshield-api/api"
	"github.com/crimeshield/crimeshield-api/clients/gemini"
	"github.com/crimeshield/crimeshield-api/clients/storage"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// Post exported for testing purposes
type Post struct {
	DB       databases.ReportDatabase
	Storage  AttachmentStore
	Geocoder Geocoder
	Analyzer ReportAnalyzer
	Mailer   Notifier
	Feed     Broadcaster
	Admins   AdminResolver
}

// PostRequest is the editable part of a report
type PostRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ThreatLevel string          `json:"threatLevel"`
	UserEmail   string          `json:"userEmail"`
	Anonymous   bool            `json:"anonymous"`
	Location    models.Location `json:"location"`
}

// Validate checks the required fields of a new report
func (p PostRequest) Validate() error {
	switch {
	case textLen(p.Title) == 0:
		return errors.New("title is required")
	case textLen(p.Title) > 200:
		return errors.New("title must be at most 200 characters")
	case textLen(p.Description) == 0:
		return errors.New("description is required")
	case textLen(p.Description) > 5000:
		return errors.New("description must be at most 5000 characters")
	case !models.Contains(models.Categories, p.Category):
		return fmt.Errorf("category must be one of %s", strings.Join(models.Categories, ", "))
	case !models.Contains(models.ThreatLevels, p.ThreatLevel):
		return fmt.Errorf("threatLevel must be one of %s", strings.Join(models.ThreatLevels, ", "))
	}
	return nil
}

// upload is an attachment read from a multipart request
type upload struct {
	header *multipart.FileHeader
	data   []byte
	kind   string
}

// CreatePostHandler files a new report from a JSON or multipart body
func (p Post) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	var uploads []upload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var err error
		req, uploads, err = parseMultipartPost(r)
		if err != nil {
			config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.ThreatLevel = strings.ToLower(strings.TrimSpace(req.ThreatLevel))
	if err := req.Validate(); err != nil {
		config.ErrorStatus("invalid report", http.StatusBadRequest, w, err)
		return
	}

	ctx := r.Context()
	ts := now()
	report := models.Report{
		ID:                primitive.NewObjectID(),
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		Category:          req.Category,
		ThreatLevel:       req.ThreatLevel,
		UserEmail:         strings.ToLower(strings.TrimSpace(req.UserEmail)),
		Anonymous:         req.Anonymous,
		Attachments:       []models.Attachment{},
		Comments:          []models.Comment{},
		Reactions:         []models.Reaction{},
		AuthenticityVotes: []models.AuthenticityVote{},
		Sentiment:         models.Sentiment{Overall: "neutral"},
		Source:            models.SourceUser,
		Status:            models.StatusActive,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}

	if len(uploads) > 0 {
		attachments, err := p.storeUploads(ctx, uploads)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, storage.ErrDisabled) {
				status = http.StatusServiceUnavailable
			}
			config.ErrorStatus("failed to upload attachments", status, w, err)
			return
		}
		report.Attachments = attachments
	}

	p.geocode(ctx, &report.Location)

	if p.Analyzer != nil {
		in := analysis.Input{Title: report.Title, Description: report.Description}
		for _, u := range uploads {
			if u.kind == "image" {
				in.Images = append(in.Images, gemini.Image{MIMEType: u.header.Header.Get("Content-Type"), Data: u.data})
			}
		}
		for _, a := range report.Attachments {
			if a.Type == "image" {
				in.ImageURLs = append(in.ImageURLs, a.URL)
			}
		}
		out := p.Analyzer.Analyze(ctx, in)
		report.AIAnalysis = &out
	}

	dbCtx, cancel := api.WithQueryTimeout(ctx)
	defer cancel()
	if _, err := p.DB.InsertOne(dbCtx, report); err != nil {
		config.ErrorStatus("failed to insert report", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("report created", "id", report.ID.Hex(), "category", report.Category, "threatLevel", report.ThreatLevel)

	public := report
	redactOne(&public)
	p.feed().Broadcast(EventPostCreated, public)

	if p.Mailer != nil && (report.ThreatLevel == "high" || report.ThreatLevel == "critical") {
		go func(r models.Report) {
			if err := p.Mailer.SendAlert(r); err != nil {
				zap.S().Errorw("failed to send report alert", "id", r.ID.Hex(), "error", err)
			}
		}(report)
	}

	writeJSON(w, http.StatusCreated, public)
}

func parseMultipartPost(r *http.Request) (PostRequest, []upload, error) {
	var req PostRequest
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return req, nil, err
	}
	form := r.MultipartForm
	get := func(k string) string {
		if v := form.Value[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	req.Title = get("title")
	req.Description = get("description")
	req.Category = get("category")
	req.ThreatLevel = get("threatLevel")
	req.UserEmail = get("userEmail")
	req.Anonymous, _ = strconv.ParseBool(get("anonymous"))
	req.Location.Address = get("address")
	req.Location.City = get("city")
	req.Location.Lat, _ = strconv.ParseFloat(get("lat"), 64)
	req.Location.Lng, _ = strconv.ParseFloat(get("lng"), 64)

	files := form.File["attachments"]
	if len(files) > storage.MaxFiles {
		return req, nil, fmt.Errorf("at most %d attachments are allowed", storage.MaxFiles)
	}
	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > storage.MaxFileSize {
			return req, nil, fmt.Errorf("%s: %w", fh.Filename, storage.ErrTooLarge)
		}
		kind, err := storage.Kind(fh.Header.Get("Content-Type"), fh.Filename)
		if err != nil {
			return req, nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		f, err := fh.Open()
		if err != nil {
			return req, nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, storage.MaxFileSize+1))
		f.Close()
		if err != nil {
			return req, nil, err
		}
		uploads = append(uploads, upload{header: fh, data: data, kind: kind})
	}
	return req, uploads, nil
}

func (p Post) storeUploads(ctx context.Context, uploads []upload) ([]models.Attachment, error) {
	if p.Storage == nil || !p.Storage.Enabled() {
		return nil, storage.ErrDisabled
	}
	out := make([]models.Attachment, 0, len(uploads))
	for _, u := range uploads {
		obj, err := p.Storage.Put(ctx, bytes.NewReader(u.data), u.header.Filename, u.header.Header.Get("Content-Type"), int64(len(u.data)))
		if err != nil {
			// best effort cleanup of what was already stored
			for _, a := range out {
				_ = p.Storage.Delete(ctx, a.PublicID, a.Type)
			}
			return nil, err
		}
		out = append(out, models.Attachment{
			URL:      obj.URL,
			PublicID: obj.PublicID,
			Type:     obj.Type,
			Name:     u.header.Filename,
			Size:     int64(len(u.data)),
		})
	}
	return out, nil
}

// geocode fills in coordinates for an address. Failures leave the location untouched.
func (p Post) geocode(ctx context.Context, loc *models.Location) {
	if p.Geocoder == nil || loc.HasCoordinates() || strings.TrimSpace(loc.Address) == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, vendorTimeout)
	defer cancel()
	place, err := p.Geocoder.Lookup(ctx, loc.Address)
	if err != nil {
		zap.S().Warnw("failed to geocode address", "address", loc.Address, "error", err)
		return
	}
	loc.Lat, loc.Lng = place.Lat, place.Lng
	if loc.City == "" {
		loc.City = place.City
	}
}

func (p Post) feed() Broadcaster {
	if p.Feed == nil {
		return noopBroadcaster{}
	}
	return p.Feed
}

func (p Post) isAdmin(r *http.Request) (string, bool) {
	if email, ok := api.AdminFromContext(r.Context()); ok {
		return email, true
	}
	if p.Admins == nil {
		return "", false
	}
	return p.Admins.Admin(r)
}

// PostsHandler returns the paginated feed
func (p Post) PostsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := bson.M{"status": bson.M{"$ne": models.StatusHidden}}
	for _, key := range []string{"category", "threatLevel", "source"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			filter[key] = v
		}
	}
	if v := strings.TrimSpace(q.Get("userEmail")); v != "" {
		filter["userEmail"] = strings.ToLower(v)
		filter["anonymous"] = bson.M{"$ne": true}
	}
	if text := strings.TrimSpace(q.Get("q")); text != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	opts, page, limit := databases.PaginatedOpts(queryInt(r, "limit", databases.DefaultPageSize), queryInt(r, "page", 1))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reports, err := p.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get reports", http.StatusInternalServerError, w, err)
		return
	}
	total, err := p.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count reports", http.StatusInternalServerError, w, err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	writeJSON(w, http.StatusOK, models.PaginatedResponse{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		Data:       redact(reports),
	})
}

// PostByIDHandler returns a single report
func (p Post) PostByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	_, admin := p.isAdmin(r)
	if report.Status == models.StatusHidden && !admin {
		config.ErrorStatus("failed to get report by ID", http.StatusNotFound, w, databases.ErrNotFound)
		return
	}
	normalizeReport(report)
	if !admin {
		redactOne(report)
	}
	writeJSON(w, http.StatusOK, report)
}

// UpdatePostHandler lets the author edit a report
func (p Post) UpdatePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		UserEmail   string           `json:"userEmail"`
		Title       *string          `json:"title"`
		Description *string          `json:"description"`
		Category    *string          `json:"category"`
		ThreatLevel *string          `json:"threatLevel"`
		Location    *models.Location `json:"location"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.UserEmail))
	if email == "" || email != report.UserEmail {
		config.ErrorStatus("only the author can edit this report", http.StatusForbidden, w, nil)
		return
	}

	edited := PostRequest{
		Title:       report.Title,
		Description: report.Description,
		Category:    report.Category,
		ThreatLevel: report.ThreatLevel,
	}
	set := bson.M{}
	if req.Title != nil {
		edited.Title = strings.TrimSpace(*req.Title)
		set["title"] = edited.Title
	}
	if req.Description != nil {
		edited.Description = strings.TrimSpace(*req.Description)
		set["description"] = edited.Description
	}
	if req.Category != nil {
		edited.Category = strings.ToLower(strings.TrimSpace(*req.Category))
		set["category"] = edited.Category
	}
	if req.ThreatLevel != nil {
		edited.ThreatLevel = strings.ToLower(strings.TrimSpace(*req.ThreatLevel))
		set["threatLevel"] = edited.ThreatLevel
	}
	if err := edited.Validate(); err != nil {
		config.ErrorStatus("invalid report", http.StatusBadRequest, w, err)
		return
	}
	if req.Location != nil {
		loc := *req.Location
		p.geocode(r.Context(), &loc)
		set["location"] = loc
	}
	if len(set) == 0 {
		config.ErrorStatus("nothing to update", http.StatusBadRequest, w, nil)
		return
	}
	set["updatedAt"] = now()

	if _, err := p.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		dbError("failed to update report", w, err)
		return
	}
	updated, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	normalizeReport(updated)
	writeJSON(w, http.StatusOK, updated)
}

// DeletePostHandler removes a report. Authors pass ?userEmail=, admins their token.
func (p Post) DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	admin, isAdmin := p.isAdmin(r)
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("userEmail")))
	if !isAdmin && (email == "" || email != report.UserEmail) {
		config.ErrorStatus("only the author or an admin can delete this report", http.StatusForbidden, w, nil)
		return
	}

	if err := p.DB.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		dbError("failed to delete report", w, err)
		return
	}
	if p.Storage != nil {
		for _, a := range report.Attachments {
			if err := p.Storage.Delete(ctx, a.PublicID, a.Type); err != nil {
				zap.S().Warnw("failed to delete attachment", "publicId", a.PublicID, "error", err)
			}
		}
	}
	zap.S().Infow("report deleted", "id", id.Hex(), "admin", admin)
	writeJSON(w, http.StatusOK, messageResponse{Message: "report deleted"})
}

// HeatmapHandler returns weighted points for every located report
func (p Post) HeatmapHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{
		"status": bson.M{"$ne": models.StatusHidden},
		"$or": bson.A{
			bson.M{"location.lat": bson.M{"$ne": 0}},
			bson.M{"location.lng": bson.M{"$ne": 0}},
		},
	}
	if c := strings.TrimSpace(r.URL.Query().Get("category")); c != "" {
		filter["category"] = c
	}
	if days := queryInt(r, "since", 0); days > 0 {
		filter["createdAt"] = bson.M{"$gte": primitive.NewDateTimeFromTime(time.Now().AddDate(0, 0, -days))}
	}
	opts := options.Find().SetProjection(bson.M{"location": 1, "category": 1, "threatLevel": 1}).SetLimit(5000)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reports, err := p.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get heatmap", http.StatusInternalServerError, w, err)
		return
	}
	points := make([]models.HeatmapPoint, 0, len(reports))
	for _, rep := range reports {
		if !rep.Location.HasCoordinates() {
			continue
		}
		points = append(points, models.HeatmapPoint{
			Lat:      rep.Location.Lat,
			Lng:      rep.Location.Lng,
			Weight:   models.ThreatWeight(rep.ThreatLevel),
			Category: rep.Category,
		})
	}
	writeJSON(w, http.StatusOK, points)
}

// LeaderboardHandler ranks reporters by the number of reports they filed
func (p Post) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	pipeline := mongoPipeline(
		bson.M{"$match": bson.M{
			"source":    models.SourceUser,
			"anonymous": bson.M{"$ne": true},
			"userEmail": bson.M{"$nin": bson.A{"", nil}},
			"status":    bson.M{"$ne": models.StatusHidden},
		}},
		bson.M{"$group": bson.M{"_id": "$userEmail", "reports": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.D{{Key: "reports", Value: -1}, {Key: "_id", Value: 1}}},
		bson.M{"$limit": limit},
	)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	entries := []models.LeaderboardEntry{}
	if err := p.DB.Aggregate(ctx, pipeline, &entries); err != nil {
		config.ErrorStatus("failed to get leaderboard", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CategoriesHandler returns the number of visible reports per category
func (p Post) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	pipeline := mongoPipeline(
		bson.M{"$match": bson.M{"status": bson.M{"$ne": models.StatusHidden}}},
		bson.M{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
	)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	counts := []models.CategoryCount{}
	if err := p.DB.Aggregate(ctx, pipeline, &counts); err != nil {
		config.ErrorStatus("failed to get categories", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// FlagPostHandler lets anyone flag a report for review
func (p Post) FlagPostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		UserEmail string `json:"userEmail"`
		Reason    string `json:"reason"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if textLen(req.Reason) > 500 {
		config.ErrorStatus("reason must be at most 500 characters", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":               models.StatusFlagged,
		"moderation.flaggedBy": strings.ToLower(strings.TrimSpace(req.UserEmail)),
		"moderation.reason":    strings.TrimSpace(req.Reason),
		"updatedAt":            now(),
	}}
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.StatusHidden}}
	if _, err := p.DB.UpdateOne(ctx, filter, update); err != nil {
		dbError("failed to flag report", w, err)
		return
	}
	zap.S().Infow("report flagged", "id", id.Hex(), "by", req.UserEmail)
	writeJSON(w, http.StatusOK, messageResponse{Message: "report flagged for review"})
}

func mongoPipeline(stages ...bson.M) bson.A {
	out := make(bson.A, 0, len(stages))
	for _, s := range stages {
		out = append(out, s)
	}
	return out
}
