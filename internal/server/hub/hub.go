// Package hub is the single source of truth for connectivity and routing:
// it tracks live connections and fans frames out to them.
package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"cipherchat/internal/logging"
	"cipherchat/internal/protocol"
	"cipherchat/internal/server/metrics"
)

// Conn is the routing handle the hub keeps per live connection. The hub never
// touches the underlying socket or session; it only enqueues outbound frames.
type Conn interface {
	// User returns the authenticated user bound to the connection,
	// ok=false while unauthenticated.
	User() (userID int64, ok bool)

	// Enqueue hands a frame to the connection's outbound queue without
	// blocking. It returns false when the connection is closed or its
	// queue is full; the caller skips such connections.
	Enqueue(f protocol.Frame) bool
}

// Hub maps connection IDs to routing handles. Mutation and broadcast
// enumeration each run under a bounded critical section; delivery itself
// happens outside the lock on a copy-on-read snapshot, so a concurrent
// register or deregister never routes to a stale handle.
type Hub struct {
	logger    logging.Logger
	collector *metrics.Collector

	mu    sync.RWMutex
	conns map[string]Conn
}

func New(logger logging.Logger, collector *metrics.Collector) *Hub {
	return &Hub{
		logger:    logger.With("module", "hub"),
		collector: collector,
		conns:     make(map[string]Conn),
	}
}

// Register adds a connection and returns its assigned ID. The
// active-connections gauge follows registration, not socket accept.
func (h *Hub) Register(c Conn) string {
	id := uuid.NewString()

	h.mu.Lock()
	h.conns[id] = c
	n := len(h.conns)
	h.mu.Unlock()

	h.collector.ConnOpened()
	h.logger.Debug(context.Background(), "connection registered", "conn_id", id, "total", n)
	return id
}

// Deregister removes a connection. Duplicate calls for the same ID are
// harmless and do not double-count the gauge.
func (h *Hub) Deregister(id string) {
	h.mu.Lock()
	_, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	n := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.collector.ConnClosed()
	h.logger.Debug(context.Background(), "connection deregistered", "conn_id", id, "total", n)
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

type entry struct {
	id   string
	conn Conn
}

func (h *Hub) snapshot() []entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := make([]entry, 0, len(h.conns))
	for id, c := range h.conns {
		entries = append(entries, entry{id: id, conn: c})
	}
	return entries
}

// Broadcast delivers f best-effort to every registered connection except
// excludeID, and returns the number of queues reached. A connection gone or
// full between snapshot and send is skipped, never an error.
func (h *Hub) Broadcast(f protocol.Frame, excludeID string) int {
	delivered := 0
	for _, e := range h.snapshot() {
		if e.id == excludeID {
			continue
		}
		if e.conn.Enqueue(f) {
			delivered++
		}
	}
	return delivered
}

// SendToUser delivers f to every connection authenticated as userID and
// reports whether at least one delivery happened. A user logged in on
// multiple sockets receives the frame on each of them.
func (h *Hub) SendToUser(userID int64, f protocol.Frame) bool {
	delivered := false
	for _, e := range h.snapshot() {
		id, ok := e.conn.User()
		if !ok || id != userID {
			continue
		}
		if e.conn.Enqueue(f) {
			delivered = true
		}
	}
	return delivered
}
