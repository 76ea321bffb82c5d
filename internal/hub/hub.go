// Package hub tracks the live connections of one room and fans frames out to
// them. Each connection owns a bounded outbox; when a consumer falls behind
// the oldest queued frame is discarded so the room never blocks on a socket.
package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleParticipant Role = "participant"
	RoleSpectator   Role = "spectator"
)

const DefaultOutboxSize = 16

// Info is the public view of a connection, as embedded in room snapshots.
type Info struct {
	ClientID    string    `json:"client_id"`
	ConnectedAt time.Time `json:"connected_at"`
	UserID      string    `json:"user_id,omitempty"`
}

type Conn struct {
	ID          string
	Role        Role
	UserID      string
	ConnectedAt time.Time

	mu      sync.Mutex
	out     chan []byte
	closed  bool
	dropped int
}

func newConn(role Role, userID string, size int) *Conn {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Conn{
		ID:          uuid.NewString()[:6],
		Role:        role,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		out:         make(chan []byte, size),
	}
}

// Out is drained by the connection's writer. It is closed when the
// connection is detached or the room shuts down.
func (c *Conn) Out() <-chan []byte { return c.out }

// Send queues a frame, evicting the oldest queued frame if the outbox is full.
// It never blocks and reports false once the connection is closed.
func (c *Conn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for {
		select {
		case c.out <- frame:
			return true
		default:
		}
		select {
		case <-c.out:
			c.dropped++
		default:
		}
	}
}

// Dropped counts frames evicted because the consumer was slow.
func (c *Conn) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Conn) Info() Info {
	return Info{ClientID: c.ID, ConnectedAt: c.ConnectedAt, UserID: c.UserID}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

type Hub struct {
	mu         sync.RWMutex
	conns      map[string]*Conn
	outboxSize int
}

func New(outboxSize int) *Hub {
	return &Hub{
		conns:      make(map[string]*Conn),
		outboxSize: outboxSize,
	}
}

func (h *Hub) Attach(role Role, userID string) *Conn {
	c := newConn(role, userID, h.outboxSize)
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
	return c
}

// Detach removes and closes the connection. It reports whether it was attached.
func (h *Hub) Detach(id string) bool {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
	return ok
}

// Broadcast queues frame on every connection and returns how many accepted it.
func (h *Hub) Broadcast(frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.conns {
		if c.Send(frame) {
			n++
		}
	}
	return n
}

func (h *Hub) Count(role Role) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.conns {
		if c.Role == role {
			n++
		}
	}
	return n
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Infos returns the connections of a role keyed by client id.
func (h *Hub) Infos(role Role) map[string]Info {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Info)
	for id, c := range h.conns {
		if c.Role == role {
			out[id] = c.Info()
		}
	}
	return out
}

// IDs lists attached client ids in connect order.
func (h *Hub) IDs() []string {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool { return conns[i].ConnectedAt.Before(conns[j].ConnectedAt) })
	ids := make([]string, len(conns))
	for i, c := range conns {
		ids[i] = c.ID
	}
	return ids
}

// CloseAll detaches every connection, closing their outboxes.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*Conn)
	h.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}
