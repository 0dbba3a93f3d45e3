package grammarly

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longText() string {
	return strings.Repeat("the suspect fled north on foot ", 10)
}

func TestDetect(t *testing.T) {
	var polls int32
	var uploaded string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/ecosystem/api/v1/ai-detection":
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"score_request_id": "req-1",
				"file_upload_url":  srv.URL + "/upload/req-1",
			})
		case r.Method == http.MethodPut && r.URL.Path == "/upload/req-1":
			b, _ := io.ReadAll(r.Body)
			uploaded = string(b)
		case r.Method == http.MethodGet && r.URL.Path == "/ecosystem/api/v1/ai-detection/req-1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_, _ = w.Write([]byte(`{"status":"PENDING"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"COMPLETED","score":{"ai_generated_percentage":42,"average_confidence":0.9}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL, PollInterval: time.Millisecond})
	score, err := c.Detect(context.Background(), longText())
	require.NoError(t, err)
	assert.InDelta(t, 0.42, score, 1e-9)
	assert.Equal(t, longText(), uploaded)
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestDetectTooShort(t *testing.T) {
	c := NewClient(Config{APIKey: "key"})
	_, err := c.Detect(context.Background(), "too short")
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestDetectGivesUpAfterMaxPolls(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]string{"score_request_id": "r", "file_upload_url": srv.URL + "/u"})
			return
		}
		_, _ = w.Write([]byte(`{"status":"PENDING"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL, PollInterval: time.Millisecond, MaxPolls: 2})
	_, err := c.Detect(context.Background(), longText())
	assert.EqualError(t, err, "score not ready after 2 polls")
}

func TestDetectCreateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	_, err := c.Detect(context.Background(), longText())
	assert.ErrorContains(t, err, "status 401: bad key")
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewClient(Config{}).Enabled())
	assert.True(t, NewClient(Config{APIKey: "k"}).Enabled())
	var c *Client
	assert.False(t, c.Enabled())
}
