// Package wshub re-broadcasts a running audit's host-vocabulary progress
// events to subscribed websocket clients (a dashboard, a CLI watching a
// remote audit). It implements runner.EventSink. The HTTP/WebSocket API
// facade and authentication in front of it are out of scope here; this
// package is the thin fan-out primitive such a facade would mount a
// handler on top of: a broadcast channel drained by one goroutine, a
// mutex-guarded client set, and a write-deadline per message to keep one
// slow client from blocking the hub.
package wshub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/veritas-audit/veritas/internal/runner"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeDeadline bounds how long a single broadcast write may block on a
// slow or stalled client before the hub drops it.
const writeDeadline = 5 * time.Second

// Hub maintains the set of subscribed websocket clients, scoped per audit
// id, and implements runner.EventSink so a Runner can publish directly to
// it.
type Hub struct {
	broadcast chan runner.HostEvent

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> subscribed audit id, "" = all
}

// NewHub returns a Hub with a buffered broadcast channel; call Run in its
// own goroutine to start draining it.
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan runner.HostEvent, 256),
		clients:   make(map[*websocket.Conn]string),
	}
}

// Run drains the broadcast channel until ctx is cancelled, fanning each
// event out to every client subscribed to that audit id (or to all audits).
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case he, ok := <-h.broadcast:
			if !ok {
				return
			}
			h.fanOut(he)
		}
	}
}

func (h *Hub) fanOut(he runner.HostEvent) {
	payload, err := json.Marshal(he.Event)
	if err != nil {
		log.Warn().Err(err).Msg("wshub: failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, auditID := range h.clients {
		if auditID != "" && auditID != he.AuditID {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug().Err(err).Msg("wshub: write failed, dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Publish implements runner.EventSink.
func (h *Hub) Publish(ctx context.Context, he runner.HostEvent) {
	select {
	case h.broadcast <- he:
	case <-ctx.Done():
	default:
		log.Warn().Str("audit_id", he.AuditID).Msg("wshub: broadcast channel full, dropping event")
	}
}

// Subscribe upgrades r to a websocket connection and registers it to
// receive events for auditID ("" subscribes to every audit).
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, auditID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.clients[conn] = auditID
	h.mu.Unlock()

	go h.readLoop(conn)
	return nil
}

// readLoop discards inbound frames but must run so the connection's
// close/ping control frames are processed and disconnects are detected.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount returns the number of currently subscribed connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
