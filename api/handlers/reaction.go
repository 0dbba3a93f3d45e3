package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crimeshield/crimeshield-api/api"
	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// Reaction exported for testing purposes
type Reaction struct {
	DB databases.ReportDatabase
}

type reactionRequest struct {
	UserEmail string `json:"userEmail"`
	Type      string `json:"type"`
	Vote      string `json:"vote"`
}

// toggleUpdate builds the update for a one-per-user entry in field. The same
// value again removes the entry, a different value replaces it and no entry adds one.
func toggleUpdate(field, key, email, current, value string, ts primitive.DateTime) bson.M {
	switch current {
	case value:
		return bson.M{"$pull": bson.M{field: bson.M{"userEmail": email}}}
	case "":
		return bson.M{"$push": bson.M{field: bson.M{"userEmail": email, key: value, "createdAt": ts}}}
	default:
		set := bson.M{}
		set[field+".$."+key] = value
		set[field+".$.createdAt"] = ts
		return bson.M{"$set": set}
	}
}

// toggleFilter matches the report and, for a replace, the caller's entry. A
// first entry only matches while the caller still has none, so concurrent
// first reactions cannot push twice.
func toggleFilter(id primitive.ObjectID, field, email, current, value string) bson.M {
	filter := bson.M{"_id": id}
	switch current {
	case "":
		filter[field+".userEmail"] = bson.M{"$ne": email}
	case value:
	default:
		filter[field+".userEmail"] = email
	}
	return filter
}

// toggleError writes the response for a failed toggle update
func toggleError(message string, w http.ResponseWriter, current string, err error) {
	if current == "" && errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(message, http.StatusConflict, w, errors.New("entry changed concurrently, retry"))
		return
	}
	dbError(message, w, err)
}

// ReactHandler toggles the caller's reaction and returns counts by type
func (re Reaction) ReactHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	var req reactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.UserEmail))
	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if email == "" {
		config.ErrorStatus("userEmail is required", http.StatusBadRequest, w, nil)
		return
	}
	if !models.Contains(models.ReactionTypes, kind) {
		config.ErrorStatus("invalid reaction", http.StatusBadRequest, w,
			fmt.Errorf("type must be one of %s", strings.Join(models.ReactionTypes, ", ")))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := re.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	current := ""
	for _, x := range report.Reactions {
		if x.UserEmail == email {
			current = x.Type
			break
		}
	}

	ts := now()
	filter := toggleFilter(id, "reactions", email, current, kind)
	if _, err := re.DB.UpdateOne(ctx, filter, toggleUpdate("reactions", "type", email, current, kind, ts)); err != nil {
		toggleError("failed to update reaction", w, current, err)
		return
	}

	report.Reactions = applyReaction(report.Reactions, email, current, kind, ts)
	writeJSON(w, http.StatusOK, report.ReactionCounts())
}

func applyReaction(list []models.Reaction, email, current, kind string, ts primitive.DateTime) []models.Reaction {
	out := make([]models.Reaction, 0, len(list)+1)
	for _, x := range list {
		if x.UserEmail != email {
			out = append(out, x)
		}
	}
	if current != kind {
		out = append(out, models.Reaction{UserEmail: email, Type: kind, CreatedAt: ts})
	}
	return out
}

// VoteHandler toggles the caller's authenticity vote and returns the tally
func (re Reaction) VoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r, "id")
	if !ok {
		return
	}
	var req reactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.UserEmail))
	vote := strings.ToLower(strings.TrimSpace(req.Vote))
	if email == "" {
		config.ErrorStatus("userEmail is required", http.StatusBadRequest, w, nil)
		return
	}
	if vote != models.VoteAuthentic && vote != models.VoteFake {
		config.ErrorStatus("vote must be authentic or fake", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := re.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		dbError("failed to get report by ID", w, err)
		return
	}
	current := ""
	for _, v := range report.AuthenticityVotes {
		if v.UserEmail == email {
			current = v.Vote
			break
		}
	}

	ts := now()
	filter := toggleFilter(id, "authenticityVotes", email, current, vote)
	if _, err := re.DB.UpdateOne(ctx, filter, toggleUpdate("authenticityVotes", "vote", email, current, vote, ts)); err != nil {
		toggleError("failed to update vote", w, current, err)
		return
	}

	votes := make([]models.AuthenticityVote, 0, len(report.AuthenticityVotes)+1)
	for _, v := range report.AuthenticityVotes {
		if v.UserEmail != email {
			votes = append(votes, v)
		}
	}
	if current != vote {
		votes = append(votes, models.AuthenticityVote{UserEmail: email, Vote: vote, CreatedAt: ts})
	}
	report.AuthenticityVotes = votes
	writeJSON(w, http.StatusOK, report.VoteTally())
}
