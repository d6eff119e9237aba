// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package progress broadcasts capture progress to live subscribers over
// websockets. The pipeline publishes an event after every accepted
// image contribution; the storage-browsing UI subscribes at GET /ws.
package progress

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/models"
)

// Message types sent to subscribers.
const (
	MessageTypeProgress = "capture_progress"
	MessageTypeComplete = "capture_complete"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is one websocket frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub maintains the set of connected subscribers and fans events out to
// them. Publish never blocks the caller: a full broadcast buffer drops
// the event, because progress is advisory and ingestion must not stall
// on a slow UI.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run must be started for events to flow.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Publish queues a progress event for broadcast. Satisfies
// ingest.ProgressPublisher.
func (h *Hub) Publish(event models.ProgressEvent) {
	msgType := MessageTypeProgress
	if event.Complete {
		msgType = MessageTypeComplete
	}
	select {
	case h.broadcast <- Message{Type: msgType, Data: event}:
		metrics.WSEventsPublished.Inc()
	default:
		logging.Warn().Str("logical_key", event.LogicalKey).Msg("progress broadcast buffer full, event dropped")
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve runs the hub loop until ctx is cancelled, then closes every
// subscriber. Implements suture.Service.
//
// Lifecycle events are drained before broadcasts so client state is
// consistent when a message fans out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// String identifies the service in supervisor logs.
func (h *Hub) String() string { return "progress-hub" }

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("progress subscriber connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("progress subscriber disconnected")
}

func (h *Hub) fanOut(message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow subscriber: skip rather than block the hub.
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	metrics.WSConnections.Set(0)
	logging.Info().Int("clients_closed", count).Msg("progress hub stopped")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI and the server share the device; origin checks would only
	// reject the local webview.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a websocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := newClient(h, conn)
	h.register <- client
	client.start()
}
