package ws

import "github.com/attendance/internal/session"

type EventType string

const (
	// Client -> server.
	EventActivate   EventType = "activate"
	EventDeactivate EventType = "deactivate"
	EventStatus     EventType = "status"

	// Server -> client.
	EventTick        EventType = "tick"
	EventStatusState EventType = "status_state"
	EventError       EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type EventType `json:"type"`
}

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// TickPayload is sent once per countdown tick while a shift is open.
type TickPayload struct {
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// StatusPayload is sent on every state transition and after reconciliation.
type StatusPayload struct {
	session.StatusView
}
