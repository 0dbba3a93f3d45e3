package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crimeshield/crimeshield-api/config"
	"github.com/crimeshield/crimeshield-api/databases"
	"github.com/crimeshield/crimeshield-api/models"
)

// maxJSONBody bounds JSON request bodies
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
}

// postID parses the {id} route variable, writing a 400 when it is not an ObjectID
func postID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

// dbError maps a database error to 404 or 500
func dbError(message string, w http.ResponseWriter, err error) {
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(message, http.StatusNotFound, w, err)
		return
	}
	config.ErrorStatus(message, http.StatusInternalServerError, w, err)
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func now() primitive.DateTime {
	return primitive.NewDateTimeFromTime(time.Now())
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// redact blanks the author of anonymous reports for public responses
func redact(reports []models.Report) []models.Report {
	for i := range reports {
		redactOne(&reports[i])
	}
	return reports
}

func redactOne(r *models.Report) {
	if r.Anonymous {
		r.UserEmail = ""
	}
}

// normalizeReport replaces nil slices so responses always carry arrays
func normalizeReport(r *models.Report) {
	if r.Attachments == nil {
		r.Attachments = []models.Attachment{}
	}
	if r.Comments == nil {
		r.Comments = []models.Comment{}
	}
	if r.Reactions == nil {
		r.Reactions = []models.Reaction{}
	}
	if r.AuthenticityVotes == nil {
		r.AuthenticityVotes = []models.AuthenticityVote{}
	}
}

type messageResponse struct {
	Message string `json:"message"`
}
