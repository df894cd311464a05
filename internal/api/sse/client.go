package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcoot/soulpit/internal/model"
)

const (
	// keepaliveInterval keeps idle proxies from dropping a quiet list's stream
	keepaliveInterval = 30 * time.Second

	// A member that falls this many events behind is dropped by the hub
	sendBufferSize = 256

	// reconnectDelay is the retry hint given to EventSource clients, in ms
	reconnectDelay = 3000
)

// Client is one member's open event stream on a list
type Client struct {
	hub         *Hub
	playerID    model.PlayerID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a stream for playerID on hub. It receives nothing until
// registered.
func NewClient(hub *Hub, playerID model.PlayerID) *Client {
	return &Client{
		hub:         hub,
		playerID:    playerID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// connectedPayload opens every stream so clients know which list they follow
type connectedPayload struct {
	ListID   model.ListID   `json:"list_id"`
	PlayerID model.PlayerID `json:"player_id"`
}

// ServeSSE streams the list's events to playerID until the request ends or
// the hub shuts down. Access checks happen before this is called.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, playerID model.PlayerID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient(hub, playerID)
	if !hub.Register(client) {
		http.Error(w, "list event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	send := func(b []byte) bool {
		if _, err := w.Write(b); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	hello, _ := json.Marshal(connectedPayload{ListID: hub.listID, PlayerID: playerID})
	if !send(append([]byte(fmt.Sprintf("retry: %d\n", reconnectDelay)), formatSSEMessage("connected", string(hello))...)) {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if !send([]byte(": keepalive\n\n")) {
				return
			}
		case msg, open := <-client.send:
			if !open || !send(msg) {
				return
			}
		}
	}
}
