package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from the same extension origin; there is no
	// cross-site embedding scenario to guard against here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// broadcastHub fans state.update notifications out to every connected UI
// socket, de-duplicating by checkpoint the same way the teacher's webhook
// handler de-duplicates GitHub deliveries by ID -- a run's checkpoint can
// be replayed during recovery, and replays shouldn't re-broadcast.
type broadcastHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	seenMu sync.Mutex
	seen   map[string]time.Time
}

func newBroadcastHub() *broadcastHub {
	return &broadcastHub{
		clients: make(map[*websocket.Conn]struct{}),
		seen:    make(map[string]time.Time),
	}
}

func (h *broadcastHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *broadcastHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// deliveryKey identifies one state.update notification for idempotency:
// the same (runId, checkpoint, status, updatedAt) reaching Broadcast twice
// is a replay, not a new event. UpdatedAt is stamped on every transition, so
// two transitions that land on the same status (a pause, then a resume back
// to running) get distinct keys.
func deliveryKey(rs model.RunState) string {
	return rs.RunID + ":" + rs.Checkpoint + ":" + string(rs.Status) + ":" + rs.UpdatedAt.Format(time.RFC3339Nano)
}

func (h *broadcastHub) hasBeenProcessed(key string) bool {
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	_, ok := h.seen[key]
	return ok
}

func (h *broadcastHub) markProcessed(key string) {
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	h.seen[key] = time.Now()

	// Bound the dedup cache; entries older than an hour are stale enough to
	// safely forget.
	for k, t := range h.seen {
		if time.Since(t) > time.Hour {
			delete(h.seen, k)
		}
	}
}

// Broadcast pushes a state.update message to every connected client, unless
// this exact (runId, checkpoint, status, updatedAt) was already broadcast.
func (h *broadcastHub) Broadcast(rs model.RunState) {
	key := deliveryKey(rs)
	if h.hasBeenProcessed(key) {
		return
	}
	h.markProcessed(key)

	payload, err := json.Marshal(rs)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("websocket upgrade failed", "error", err)
		}
		return
	}
	// Send the current snapshot to this connection immediately, before it
	// joins the hub, so a freshly connected UI doesn't wait for the next
	// transition to render state.
	if payload, err := json.Marshal(s.machine.State()); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	s.hub.add(conn)

	defer func() {
		s.hub.remove(conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
