package sse

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/soulpit/internal/dependencies/events"
	"github.com/mcoot/soulpit/internal/model"
)

// Hub manages SSE clients for a single list
type Hub struct {
	listID  model.ListID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}
	closeOnce  sync.Once
}

// outbound is one message for every client of the hub. When evict is set,
// that player's streams are closed once the message is queued to them.
type outbound struct {
	data  []byte
	evict model.PlayerID
}

// NewHub creates a new Hub for a list
func NewHub(listID model.ListID, logger *slog.Logger) *Hub {
	return &Hub{
		listID:     listID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("list_id", string(listID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("sse hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client registered",
				slog.String("player_id", string(client.playerID)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("sse client unregistered",
					slog.String("player_id", string(client.playerID)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) deliver(message outbound) {
	h.mu.Lock()
	dropped, evicted := 0, 0
	for client := range h.clients {
		select {
		case client.send <- message.data:
		default:
			dropped++
		}
		if message.evict != "" && client.playerID == message.evict {
			delete(h.clients, client)
			close(client.send)
			evicted++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		h.logger.Warn("sse messages dropped - client buffers full", slog.Int("dropped", dropped))
	}
	if evicted > 0 {
		h.logger.Info("sse clients of removed member disconnected",
			slog.String("player_id", string(message.evict)),
			slog.Int("disconnected", evicted))
	}
}

// Register adds a client to the hub. It reports false if the hub is closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to all clients
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- outbound{data: message}:
	default:
		h.logger.Warn("sse broadcast dropped - hub buffer full")
	}
}

// BroadcastAndEvict sends a message to all clients, then disconnects every
// stream of playerID. It waits for room in the hub's queue rather than
// dropping, so a removed member never stays subscribed.
func (h *Hub) BroadcastAndEvict(message []byte, playerID model.PlayerID) {
	select {
	case h.broadcast <- outbound{data: message, evict: playerID}:
	case <-h.done:
	}
}

// BroadcastEvent sends an SSE event with a name and data
func (h *Hub) BroadcastEvent(eventName, data string) {
	h.Broadcast(formatSSEMessage(eventName, data))
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling \n and \r\n endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager manages hubs for all lists and publishes list events to them
type HubManager struct {
	hubs   map[model.ListID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
	wg     sync.WaitGroup
}

var _ events.Publisher = (*HubManager)(nil)

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.ListID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the hub for a list, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(listID model.ListID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[listID]; ok {
		return hub
	}

	hub := NewHub(listID, m.logger)
	m.hubs[listID] = hub
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		hub.Run()
	}()
	return hub
}

// GetHub returns the hub for a list, or nil if it doesn't exist
func (m *HubManager) GetHub(listID model.ListID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[listID]
}

// Publish forwards a list event to the list's subscribers, if any. A
// member_left event also ends the departed member's own streams.
func (m *HubManager) Publish(_ context.Context, event model.Event) {
	hub := m.GetHub(event.ListID)
	if hub == nil {
		return
	}
	data, err := encodeEvent(event)
	if err != nil {
		m.logger.Error("failed to encode list event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}
	message := formatSSEMessage(string(event.Type), string(data))
	if p, ok := event.Payload.(model.MemberPayload); ok && event.Type == model.EventMemberLeft {
		hub.BroadcastAndEvict(message, p.PlayerID)
		return
	}
	hub.Broadcast(message)
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
}

// RunCleanup removes empty hubs every interval until ctx is done
func (m *HubManager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupEmptyHubs()
		}
	}
}

// Close shuts down every hub and waits for their loops to exit
func (m *HubManager) Close() {
	m.mu.Lock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}
