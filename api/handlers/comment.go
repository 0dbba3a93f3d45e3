package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/api"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// Comment exported for testing purposes
type Comment struct {
	DB       databases.ReportDatabase
	Analyzer ReportAnalyzer
	Feed     Broadcaster
	Admins   AdminResolver
}

// CommentRequest is the body of a new comment
type CommentRequest struct {
	UserEmail string `json:"userEmail"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
}

// CreateCommentHandler appends a comment to a report and updates its sentiment
func (c Comment) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if n := textLen(text); n == 0 || n > 1000 {
		config.ErrorStatus("comment text must be between 1 and 1000 characters", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := c.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		UserEmail: strings.ToLower(strings.TrimSpace(req.UserEmail)),
		UserName:  strings.TrimSpace(req.UserName),
		Text:      text,
		Sentiment: c.sentiment(r.Context(), text),
		CreatedAt: now(),
	}

	counts := report.Sentiment.Counts
	counts.Add(comment.Sentiment, 1)
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$inc":  bson.M{"sentiment.counts." + comment.Sentiment: 1},
		"$set":  bson.M{"sentiment.overall": counts.Overall(), "updatedAt": now()},
	}
	if _, err := c.DB.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		dbError("failed to add comment", w, err)
		return
	}

	feed := c.Feed
	if feed == nil {
		feed = noopBroadcaster{}
	}
	feed.Broadcast(EventCommentAdded, map[string]interface{}{"postId": id.Hex(), "comment": comment})

	writeJSON(w, http.StatusOK, comment)
}

func (c Comment) sentiment(ctx context.Context, text string) string {
	if c.Analyzer == nil {
		return "neutral"
	}
	ctx, cancel := context.WithTimeout(ctx, vendorTimeout)
	defer cancel()
	return c.Analyzer.Sentiment(ctx, text)
}

// DeleteCommentHandler removes a comment. The author passes ?userEmail=, admins their token.
func (c Comment) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := postID(w, r, "commentId")
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := c.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	var target *models.Comment
	for i := range report.Comments {
		if report.Comments[i].ID == commentID {
			target = &report.Comments[i]
			break
		}
	}
	if target == nil {
		config.ErrorStatus("failed to get comment by ID", http.StatusNotFound, w, databases.ErrNotFound)
		return
	}

	_, admin := api.AdminFromContext(r.Context())
	if !admin && c.Admins != nil {
		_, admin = c.Admins.Admin(r)
	}
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("userEmail")))
	if !admin && (email == "" || email != target.UserEmail) {
		config.ErrorStatus("only the author or an admin can delete this comment", http.StatusForbidden, w, nil)
		return
	}

	counts := report.Sentiment.Counts
	counts.Add(target.Sentiment, -1)
	update := bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": commentID}},
		"$set":  bson.M{"sentiment.overall": counts.Overall(), "updatedAt": now()},
	}
	if models.Contains([]string{"positive", "neutral", "negative"}, target.Sentiment) {
		update["$inc"] = bson.M{"sentiment.counts." + target.Sentiment: -1}
	}
	if _, err := c.DB.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		dbError("failed to delete comment", w, err)
		return
	}
	zap.S().Infow("comment deleted", "postId", id.Hex(), "commentId", commentID.Hex(), "admin", admin)
	writeJSON(w, http.StatusOK, messageResponse{Message: "comment deleted"})
}
