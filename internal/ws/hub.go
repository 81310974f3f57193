// Package ws streams live attendance state to connected clients: one tick per
// second while a shift is open, plus status snapshots on every transition.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/attendance/internal/logger"
	"github.com/attendance/internal/session"
)

const activateTimeout = 10 * time.Second

// Hub tracks connected clients per employee and fans countdown events out to
// them. It implements session.Listener.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	sessions   *session.Manager
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(sessions *session.Manager, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		sessions:   sessions,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

// addClient registers a connection and activates the employee's session:
// reconciliation against the HR service, countdown start if a shift is open.
func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting employee=%s", h.maxConns, c.employeeID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.employeeID]; !ok {
		h.clients[c.employeeID] = make(map[*Client]struct{})
	}
	h.clients[c.employeeID][c] = struct{}{}
	h.total++
	h.mu.Unlock()

	h.activate(c)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.employeeID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	lastClient := len(clients) == 0
	if lastClient {
		delete(h.clients, c.employeeID)
	}
	h.mu.Unlock()

	c.Close()

	// Countdown only runs while someone is watching; the persisted shift
	// itself is untouched and survives for the next activation.
	if lastClient {
		h.sessions.Deactivate(c.employeeID)
	}
}

// HandleMessage dispatches incoming WebSocket control messages.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventActivate:
		h.activate(c)
	case EventDeactivate:
		h.sessions.Deactivate(c.employeeID)
	case EventStatus:
		ctrl := h.sessions.Controller(c.employeeID)
		h.sendToClient(c, OutgoingMessage{Type: EventStatusState, Payload: StatusPayload{ctrl.Status()}})
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) activate(c *Client) {
	defer logger.DeferLogDuration("ws.activate", time.Now())()
	ctx, cancel := context.WithTimeout(context.Background(), activateTimeout)
	defer cancel()
	if _, err := h.sessions.Activate(ctx, c.employeeID); err != nil {
		logger.Errorf("ws activate employee=%s: %v", c.employeeID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "activation failed"})
	}
}

// AttendanceTick implements session.Listener.
func (h *Hub) AttendanceTick(employeeID string, remaining int64) {
	h.sendToEmployee(employeeID, OutgoingMessage{
		Type:    EventTick,
		Payload: TickPayload{RemainingSeconds: remaining},
	})
}

// AttendanceStatus implements session.Listener.
func (h *Hub) AttendanceStatus(employeeID string, view session.StatusView) {
	h.sendToEmployee(employeeID, OutgoingMessage{
		Type:    EventStatusState,
		Payload: StatusPayload{view},
	})
}

func (h *Hub) sendToEmployee(employeeID string, msg OutgoingMessage) {
	h.mu.RLock()
	clients, ok := h.clients[employeeID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client employee=%s", c.employeeID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
