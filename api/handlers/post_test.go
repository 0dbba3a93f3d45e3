package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crimeshield/crimeshield-api/api/handlers"
	"github.com/crimeshield/crimeshield-api/clients/nominatim"
	"github.com/crimeshield/crimeshield-api/databases"
	mocksdb "github.com/crimeshield/crimeshield-api/databases/mocks"
	"github.com/crimeshield/crimeshield-api/models"
)

const reportHex = "5fc51f58c72ff10004dca382"

func reportID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(reportHex)
	return id
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

func errorBody(message, err string) string {
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: err}})
	return string(b)
}

func TestPost_CreatePostHandlerInvalidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/posts", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	db := &mocksdb.ReportDatabase{}
	p := handlers.Post{DB: db}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestPost_CreatePostHandlerValidation(t *testing.T) {
	cases := map[string]string{
		"missing title":  `{"description":"d","category":"theft","threatLevel":"low"}`,
		"bad category":   `{"title":"t","description":"d","category":"jaywalking","threatLevel":"low"}`,
		"bad threat":     `{"title":"t","description":"d","category":"theft","threatLevel":"extreme"}`,
		"empty desc":     `{"title":"t","description":"   ","category":"theft","threatLevel":"low"}`,
		"title too long": `{"title":"` + strings.Repeat("a", 201) + `","description":"d","category":"theft","threatLevel":"low"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/posts", strings.NewReader(body))
			db := &mocksdb.ReportDatabase{}
			p := handlers.Post{DB: db}

			rr := httptest.NewRecorder()
			http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "invalid report")
		})
	}
}

func TestPost_CreatePostHandler(t *testing.T) {
	body := `{
		"title": "Armed robbery at the corner shop",
		"description": "Two men with a knife took the till.",
		"category": "Theft",
		"threatLevel": "high",
		"userEmail": "Jane@Example.com",
		"anonymous": true,
		"location": {"address": "1 High Street, London"}
	}`
	req := httptest.NewRequest("POST", "/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	db := &mocksdb.ReportDatabase{}
	db.On("InsertOne", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
		return r.Category == "theft" &&
			r.UserEmail == "jane@example.com" &&
			r.Location.Lat == 51.5 && r.Location.City == "London" &&
			r.Status == models.StatusActive && r.Source == models.SourceUser &&
			r.AIAnalysis != nil && r.AIAnalysis.Summary == "robbery"
	})).Return(reportID(), nil)

	geo := &fakeGeocoder{place: &nominatim.Place{Lat: 51.5, Lng: -0.12, City: "London"}}
	an := &fakeAnalyzer{out: models.AIAnalysis{Summary: "robbery", SuggestedCategory: "theft"}}
	mail := newFakeNotifier()
	feed := &fakeFeed{}
	p := handlers.Post{DB: db, Geocoder: geo, Analyzer: an, Mailer: mail, Feed: feed}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	m := decodeBody(t, rr)
	assert.Equal(t, "", m["userEmail"], "anonymous reports hide the author")
	assert.Equal(t, "theft", m["category"])
	assert.Equal(t, 51.5, m["location"].(map[string]interface{})["lat"])
	assert.Equal(t, []interface{}{}, m["comments"])
	assert.Equal(t, []string{handlers.EventPostCreated}, feed.Events())
	db.AssertExpectations(t)

	select {
	case r := <-mail.alerts:
		assert.Equal(t, "jane@example.com", r.UserEmail)
	case <-time.After(time.Second):
		t.Fatal("expected an alert email for a high threat report")
	}
}

func TestPost_CreatePostHandlerLowThreatSkipsAlert(t *testing.T) {
	body := `{"title":"Bike stolen","description":"From the rack","category":"theft","threatLevel":"low","location":{"address":"x","lat":1,"lng":2}}`
	req := httptest.NewRequest("POST", "/posts", strings.NewReader(body))

	db := &mocksdb.ReportDatabase{}
	db.On("InsertOne", mock.Anything, mock.Anything).Return(reportID(), nil)
	geo := &fakeGeocoder{}
	mail := newFakeNotifier()
	p := handlers.Post{DB: db, Geocoder: geo, Mailer: mail}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 0, geo.calls, "located reports are not geocoded")
	select {
	case <-mail.alerts:
		t.Fatal("low threat reports must not alert")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPost_CreatePostHandlerInsertError(t *testing.T) {
	body := `{"title":"t","description":"d","category":"fraud","threatLevel":"medium"}`
	req := httptest.NewRequest("POST", "/posts", strings.NewReader(body))

	db := &mocksdb.ReportDatabase{}
	db.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	p := handlers.Post{DB: db}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, errorBody("failed to insert report", "mocked-error"), rr.Body.String())
}

func multipartPost(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("title", "Car window smashed"))
	require.NoError(t, mw.WriteField("description", "Glass everywhere on Elm Street"))
	require.NoError(t, mw.WriteField("category", "vandalism"))
	require.NoError(t, mw.WriteField("threatLevel", "medium"))
	require.NoError(t, mw.WriteField("lat", "40.7"))
	require.NoError(t, mw.WriteField("lng", "-74"))
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("fake file contents"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/posts", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPost_CreatePostHandlerMultipart(t *testing.T) {
	req := multipartPost(t, map[string]string{"car.png": "image/png"})

	db := &mocksdb.ReportDatabase{}
	db.On("InsertOne", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
		return len(r.Attachments) == 1 && r.Attachments[0].Type == "image" && r.Location.Lat == 40.7
	})).Return(reportID(), nil)
	store := &fakeStorage{enabled: true}
	an := &fakeAnalyzer{}
	p := handlers.Post{DB: db, Storage: store, Analyzer: an}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"car.png"}, store.puts)
	require.Len(t, an.inputs, 1)
	assert.Len(t, an.inputs[0].Images, 1)
	assert.Equal(t, []string{"https://cdn.test/car.png"}, an.inputs[0].ImageURLs)
	db.AssertExpectations(t)
}

func TestPost_CreatePostHandlerMultipartErrors(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		req := multipartPost(t, map[string]string{"notes.txt": "text/plain"})
		p := handlers.Post{DB: &mocksdb.ReportDatabase{}, Storage: &fakeStorage{enabled: true}}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("too many files", func(t *testing.T) {
		files := map[string]string{}
		for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
			files[n+".jpg"] = "image/jpeg"
		}
		req := multipartPost(t, files)
		p := handlers.Post{DB: &mocksdb.ReportDatabase{}, Storage: &fakeStorage{enabled: true}}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "at most 5 attachments")
	})

	t.Run("storage disabled", func(t *testing.T) {
		req := multipartPost(t, map[string]string{"car.png": "image/png"})
		p := handlers.Post{DB: &mocksdb.ReportDatabase{}, Storage: &fakeStorage{}}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.CreatePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestPost_PostsHandler(t *testing.T) {
	req := httptest.NewRequest("GET", "/posts?category=theft&q=a.b&page=2&limit=5", nil)

	db := &mocksdb.ReportDatabase{}
	db.On("Find", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		or, _ := f["$or"].(bson.A)
		return f["category"] == "theft" &&
			assert.ObjectsAreEqual(bson.M{"$ne": models.StatusHidden}, f["status"]) &&
			len(or) == 2 &&
			assert.ObjectsAreEqual(bson.M{"title": primitive.Regex{Pattern: `a\.b`, Options: "i"}}, or[0])
	}), mock.Anything).Return([]models.Report{
		{ID: primitive.NewObjectID(), Title: "one", UserEmail: "a@example.com"},
		{ID: primitive.NewObjectID(), Title: "two", UserEmail: "b@example.com", Anonymous: true},
	}, nil)
	db.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(7), nil)
	p := handlers.Post{DB: db}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.PostsHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp models.PaginatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, int64(7), resp.TotalCount)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "a@example.com", resp.Data[0].UserEmail)
	assert.Equal(t, "", resp.Data[1].UserEmail)
}

func TestPost_PostsHandlerEmptyAndErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		db := &mocksdb.ReportDatabase{}
		db.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		db.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.PostsHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/posts", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"data":[]`)
	})

	t.Run("find error", func(t *testing.T) {
		db := &mocksdb.ReportDatabase{}
		db.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.PostsHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/posts", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, errorBody("failed to get reports", "mocked-error"), rr.Body.String())
	})
}

func TestPost_PostByIDHandler(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("GET", "/posts/1234", nil), map[string]string{"id": "1234"})
		p := handlers.Post{DB: &mocksdb.ReportDatabase{}}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.PostByIDHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, errorBody("failed to get objectID from Hex", "the provided hex string is not a valid ObjectID"), rr.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("GET", "/posts/"+reportHex, nil), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, bson.M{"_id": reportID()}).Return(nil, databases.ErrNotFound)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.PostByIDHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("hidden for public", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("GET", "/posts/"+reportHex, nil), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(&models.Report{ID: reportID(), Status: models.StatusHidden}, nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.PostByIDHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("hidden for admin", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("GET", "/posts/"+reportHex, nil), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(&models.Report{
			ID: reportID(), Status: models.StatusHidden, Anonymous: true, UserEmail: "a@example.com",
		}, nil)
		p := handlers.Post{DB: db, Admins: fakeAdmins{email: "mod@crimeshield.test"}}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.PostByIDHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		m := decodeBody(t, rr)
		assert.Equal(t, "a@example.com", m["userEmail"])
		assert.Equal(t, []interface{}{}, m["reactions"])
	})
}

func TestPost_UpdatePostHandler(t *testing.T) {
	existing := &models.Report{
		ID: reportID(), Title: "old", Description: "d", Category: "theft", ThreatLevel: "low",
		UserEmail: "author@example.com",
	}

	t.Run("not the author", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/posts/"+reportHex, strings.NewReader(`{"userEmail":"other@example.com","title":"new"}`)), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.UpdatePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid category", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/posts/"+reportHex, strings.NewReader(`{"userEmail":"author@example.com","category":"nope"}`)), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.UpdatePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("author edit", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/posts/"+reportHex, strings.NewReader(`{"userEmail":"Author@example.com","title":"  new title ","threatLevel":"HIGH"}`)), map[string]string{"id": reportHex})
		updated := *existing
		updated.Title = "new title"
		updated.ThreatLevel = "high"

		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil).Once()
		db.On("FindOne", mock.Anything, mock.Anything).Return(&updated, nil).Once()
		db.On("UpdateOne", mock.Anything, bson.M{"_id": reportID()}, mock.MatchedBy(func(u bson.M) bool {
			set := u["$set"].(bson.M)
			_, hasCategory := set["category"]
			return set["title"] == "new title" && set["threatLevel"] == "high" && !hasCategory
		})).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.UpdatePostHandler).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "new title", decodeBody(t, rr)["title"])
		db.AssertExpectations(t)
	})
}

func TestPost_DeletePostHandler(t *testing.T) {
	existing := &models.Report{
		ID: reportID(), UserEmail: "author@example.com",
		Attachments: []models.Attachment{{URL: "u", PublicID: "reports/a", Type: "image"}},
	}

	t.Run("forbidden", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("DELETE", "/posts/"+reportHex+"?userEmail=other@example.com", nil), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.DeletePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("author", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("DELETE", "/posts/"+reportHex+"?userEmail=author@example.com", nil), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil)
		db.On("DeleteOne", mock.Anything, bson.M{"_id": reportID()}).Return(nil)
		store := &fakeStorage{enabled: true}
		p := handlers.Post{DB: db, Storage: store}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.DeletePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []string{"reports/a"}, store.deletes)
	})

	t.Run("admin", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("DELETE", "/posts/"+reportHex, nil), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil)
		db.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)
		p := handlers.Post{DB: db, Admins: fakeAdmins{email: "mod@crimeshield.test"}}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.DeletePostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		db.AssertExpectations(t)
	})
}

func TestPost_HeatmapHandler(t *testing.T) {
	db := &mocksdb.ReportDatabase{}
	db.On("Find", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		_, hasSince := f["createdAt"]
		return f["category"] == "assault" && hasSince
	}), mock.Anything).Return([]models.Report{
		{Category: "assault", ThreatLevel: "high", Location: models.Location{Lat: 10, Lng: 20}},
		{Category: "assault", ThreatLevel: "critical"},
	}, nil)
	p := handlers.Post{DB: db}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.HeatmapHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/posts/heatmap?category=assault&since=7", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var points []models.HeatmapPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &points))
	assert.Equal(t, []models.HeatmapPoint{{Lat: 10, Lng: 20, Weight: 3, Category: "assault"}}, points)
}

func TestPost_LeaderboardHandler(t *testing.T) {
	db := &mocksdb.ReportDatabase{}
	db.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(2).(*[]models.LeaderboardEntry)
		*out = []models.LeaderboardEntry{{UserEmail: "top@example.com", Reports: 9}}
	})
	p := handlers.Post{DB: db}

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.LeaderboardHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/posts/leaderboard", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"userEmail":"top@example.com","reports":9}]`, rr.Body.String())
}

func TestPost_CategoriesHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		db := &mocksdb.ReportDatabase{}
		db.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			out := args.Get(2).(*[]models.CategoryCount)
			*out = []models.CategoryCount{{Category: "theft", Count: 4}, {Category: "fraud", Count: 1}}
		})
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.CategoriesHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/posts/categories", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[{"category":"theft","count":4},{"category":"fraud","count":1}]`, rr.Body.String())
	})

	t.Run("error", func(t *testing.T) {
		db := &mocksdb.ReportDatabase{}
		db.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("mocked-error"))
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.CategoriesHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/posts/categories", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestPost_FlagPostHandler(t *testing.T) {
	t.Run("flagged", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("POST", "/posts/"+reportHex+"/flag", strings.NewReader(`{"userEmail":"x@example.com","reason":"spam"}`)), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("UpdateOne", mock.Anything, mock.Anything, mock.MatchedBy(func(u bson.M) bool {
			set := u["$set"].(bson.M)
			return set["status"] == models.StatusFlagged && set["moderation.reason"] == "spam"
		})).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.FlagPostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		db.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest("POST", "/posts/"+reportHex+"/flag", strings.NewReader(`{}`)), map[string]string{"id": reportHex})
		db := &mocksdb.ReportDatabase{}
		db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, databases.ErrNotFound)
		p := handlers.Post{DB: db}

		rr := httptest.NewRecorder()
		http.HandlerFunc(p.FlagPostHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
