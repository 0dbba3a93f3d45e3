package handlers

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/api"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// Moderation holds the admin-only report actions
type Moderation struct {
	DB      databases.ReportDatabase
	Mailer  Notifier
	Feed    Broadcaster
	Storage AttachmentStore
}

// QueueHandler lists reports by moderation status, flagged by default. ?status=all lists everything.
func (m Moderation) QueueHandler(w http.ResponseWriter, r *http.Request) {
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	filter := bson.M{}
	switch status {
	case "":
		filter["status"] = models.StatusFlagged
	case "all":
	case models.StatusActive, models.StatusFlagged, models.StatusHidden:
		filter["status"] = status
	default:
		config.ErrorStatus("invalid status", http.StatusBadRequest, w, nil)
		return
	}

	opts, page, limit := databases.PaginatedOpts(queryInt(r, "limit", databases.DefaultPageSize), queryInt(r, "page", 1))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reports, err := m.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get moderation queue", http.StatusInternalServerError, w, err)
		return
	}
	total, err := m.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count moderation queue", http.StatusInternalServerError, w, err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	writeJSON(w, http.StatusOK, models.PaginatedResponse{Page: page, Limit: limit, TotalCount: total, Data: reports})
}

// StatusHandler sets the moderation status of a report
func (m Moderation) StatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != models.StatusActive && status != models.StatusFlagged && status != models.StatusHidden {
		config.ErrorStatus("status must be active, flagged or hidden", http.StatusBadRequest, w, nil)
		return
	}
	admin, _ := api.AdminFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ts := now()
	update := bson.M{"$set": bson.M{
		"status":                 status,
		"moderation.reason":      strings.TrimSpace(req.Reason),
		"moderation.moderatedBy": admin,
		"moderation.moderatedAt": ts,
		"updatedAt":              ts,
	}}
	if _, err := m.DB.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		dbError("failed to update report status", w, err)
		return
	}
	report, err := m.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	normalizeReport(report)
	zap.S().Infow("report moderated", "id", id.Hex(), "status", status, "admin", admin)

	if m.Feed != nil {
		m.Feed.Broadcast(EventPostModerated, map[string]string{"postId": id.Hex(), "status": status})
	}
	if status == models.StatusHidden && m.Mailer != nil {
		go func(rep models.Report, reason string) {
			if err := m.Mailer.SendModeration(rep, reason); err != nil {
				zap.S().Errorw("failed to send moderation email", "id", rep.ID.Hex(), "error", err)
			}
		}(*report, strings.TrimSpace(req.Reason))
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteHandler hard deletes a report and its attachments
func (m Moderation) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := m.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	if err := m.DB.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		dbError("failed to delete report", w, err)
		return
	}
	if m.Storage != nil {
		for _, a := range report.Attachments {
			if err := m.Storage.Delete(ctx, a.PublicID, a.Type); err != nil {
				zap.S().Warnw("failed to delete attachment", "publicId", a.PublicID, "error", err)
			}
		}
	}
	admin, _ := api.AdminFromContext(r.Context())
	zap.S().Infow("report deleted by admin", "id", id.Hex(), "admin", admin)
	writeJSON(w, http.StatusOK, messageResponse{Message: "report deleted"})
}
