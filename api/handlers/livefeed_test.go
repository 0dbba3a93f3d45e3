package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimeshield/crimeshield-api/api/handlers"
)

func dialFeed(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func waitForClients(t *testing.T, hub *handlers.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, time.Second, 10*time.Millisecond)
}

func TestHub_Broadcast(t *testing.T) {
	hub := handlers.NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.FeedHandler))
	defer srv.Close()

	first := dialFeed(t, srv)
	defer first.Close()
	second := dialFeed(t, srv)
	defer second.Close()
	waitForClients(t, hub, 2)

	hub.Broadcast(handlers.EventPostCreated, map[string]string{"title": "Stolen bike"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var ev struct {
			Event string            `json:"event"`
			Data  map[string]string `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, "post_created", ev.Event)
		assert.Equal(t, "Stolen bike", ev.Data["title"])
	}
}

func TestHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := handlers.NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.FeedHandler))
	defer srv.Close()

	// never reads, so its socket buffers and then its queue fill up
	stalled := dialFeed(t, srv)
	defer stalled.Close()
	waitForClients(t, hub, 1)

	payload := strings.Repeat("x", 512*1024)
	start := time.Now()
	for i := 0; i < 100; i++ {
		hub.Broadcast(handlers.EventCommentAdded, payload)
	}
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_ClientLeaves(t *testing.T) {
	hub := handlers.NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.FeedHandler))
	defer srv.Close()

	conn := dialFeed(t, srv)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	// nobody listening is not an error
	hub.Broadcast(handlers.EventPostModerated, nil)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := handlers.NewHub([]string{"https://crimeshield.app"})
	srv := httptest.NewServer(http.HandlerFunc(hub.FeedHandler))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Len())
}
