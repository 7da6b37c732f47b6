// Package metrics holds the concurrency-safe counters and gauges exported by
// the server. Mutators are plain atomics so the hot message path is never
// serialized; the exposition path reads a consistent snapshot without
// blocking writers.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Collector aggregates the server-wide observability values. The zero value
// is ready to use; a single instance is shared by every connection actor and
// the dispatcher.
type Collector struct {
	messagesSent      atomic.Uint64
	activeConnections atomic.Int64
}

func NewCollector() *Collector {
	return &Collector{}
}

// IncMessagesSent counts one message accepted for delivery.
func (c *Collector) IncMessagesSent() {
	c.messagesSent.Add(1)
}

// ConnOpened bumps the active-connections gauge on register.
func (c *Collector) ConnOpened() {
	c.activeConnections.Add(1)
}

// ConnClosed drops the active-connections gauge on deregister.
func (c *Collector) ConnClosed() {
	c.activeConnections.Add(-1)
}

// Snapshot is one consistent read of the current values.
type Snapshot struct {
	MessagesSent      uint64
	ActiveConnections int64
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		MessagesSent:      c.messagesSent.Load(),
		ActiveConnections: c.activeConnections.Load(),
	}
}

// WriteText renders the current values in line-oriented exposition format
// for the pull-based scrape endpoint.
func (c *Collector) WriteText(w io.Writer) error {
	snap := c.Snapshot()

	_, err := fmt.Fprintf(w,
		"# HELP chat_messages_sent_total Total number of messages sent through the server\n"+
			"# TYPE chat_messages_sent_total counter\n"+
			"chat_messages_sent_total %d\n"+
			"# HELP chat_active_connections Number of active connections to the server\n"+
			"# TYPE chat_active_connections gauge\n"+
			"chat_active_connections %d\n",
		snap.MessagesSent, snap.ActiveConnections)
	return err
}
