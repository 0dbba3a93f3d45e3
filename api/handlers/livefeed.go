package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedSendBuffer = 16
)

// FeedEvent is the envelope written to live feed subscribers
type FeedEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// writePump is the only writer on conn. It drains queued events and keeps the
// connection alive with pings until done is closed or a write fails.
func (c *feedClient) writePump() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub keeps the connected live feed clients
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[string]*feedClient
	mutex    sync.Mutex
}

// NewHub creates a hub. An empty origin list accepts any origin.
func NewHub(origins []string) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients: make(map[string]*feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// FeedHandler upgrades the request and keeps the connection until the client leaves
func (h *Hub) FeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}

	id := uuid.NewString()
	client := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer), done: make(chan struct{})}
	h.mutex.Lock()
	h.clients[id] = client
	h.mutex.Unlock()
	zap.S().Debugw("live feed client connected", "client", id)

	defer func() {
		close(client.done)
		h.remove(id)
	}()
	go client.writePump()

	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(id string) {
	h.mutex.Lock()
	client, ok := h.clients[id]
	delete(h.clients, id)
	h.mutex.Unlock()
	if ok {
		client.conn.Close()
		zap.S().Debugw("live feed client disconnected", "client", id)
	}
}

// Broadcast queues an event for every connected client without waiting on
// the network. A client whose queue is full is dropped.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(FeedEvent{Event: event, Data: data})
	if err != nil {
		zap.S().Errorw("failed to encode live feed event", "event", event, "error", err)
		return
	}

	h.mutex.Lock()
	var slow []string
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, id)
		}
	}
	h.mutex.Unlock()

	for _, id := range slow {
		zap.S().Warnw("dropping slow live feed client", "client", id, "event", event)
		h.remove(id)
	}
}
