// Package realtime owns live client connections: the registry of who is
// online, the websocket connection wrapper and the gateway that speaks the
// event protocol.
package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/metrics"
)

const (
	CloseSessionReplaced = 4001
	CloseGoingAway       = websocket.CloseGoingAway
)

// Conn is a live handle the registry can push to.
type Conn interface {
	ID() string
	UserID() string
	Send(ev event.Event) error
	Close(code int, reason string)
}

// Registry maps a user to their single live connection. A newer connection
// replaces the older one.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Conn
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewRegistry(log *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		conns:   make(map[string]Conn),
		log:     log.With("component", "registry"),
		metrics: m,
	}
}

// Register binds c to its user and returns the connection it replaced, if
// any. The replaced connection is closed with 4001.
func (r *Registry) Register(c Conn) Conn {
	r.mu.Lock()
	prev := r.conns[c.UserID()]
	r.conns[c.UserID()] = c
	n := len(r.conns)
	r.mu.Unlock()

	r.metrics.Connections(n)
	if prev != nil && prev.ID() != c.ID() {
		r.log.Info("session replaced", "user_id", c.UserID(), "old_conn", prev.ID(), "new_conn", c.ID())
		prev.Close(CloseSessionReplaced, "session replaced")
		return prev
	}
	return nil
}

// Unregister removes c only if it is still the user's current connection.
func (r *Registry) Unregister(c Conn) bool {
	r.mu.Lock()
	cur, ok := r.conns[c.UserID()]
	removed := ok && cur.ID() == c.ID()
	if removed {
		delete(r.conns, c.UserID())
	}
	n := len(r.conns)
	r.mu.Unlock()

	if removed {
		r.metrics.Connections(n)
	}
	return removed
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// SendTo pushes ev to the user's live connection. It never blocks.
func (r *Registry) SendTo(userID string, ev event.Event) error {
	c, ok := r.Lookup(userID)
	if !ok {
		r.metrics.Push(ev.Name, "offline")
		return fmt.Errorf("%w: %s", errs.ErrNotConnected, userID)
	}
	if err := c.Send(ev); err != nil {
		r.metrics.Push(ev.Name, "failed")
		return err
	}
	r.metrics.Push(ev.Name, "delivered")
	return nil
}

// Broadcast pushes ev to every live connection and returns how many accepted it.
func (r *Registry) Broadcast(ev event.Event) int {
	delivered := 0
	for _, c := range r.snapshot() {
		if err := c.Send(ev); err != nil {
			r.metrics.Push(ev.Name, "failed")
			continue
		}
		r.metrics.Push(ev.Name, "delivered")
		delivered++
	}
	return delivered
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every connection with 1001 and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	r.metrics.Connections(0)
	for _, c := range conns {
		c.Close(CloseGoingAway, "server shutdown")
	}
}

func (r *Registry) snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
