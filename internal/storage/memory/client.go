package memory

import (
	"context"
	"sync"

	"github.com/attendance/internal/model"
)

// Client — SessionStore в памяти процесса (для тестов и -dev без Redis).
type Client struct {
	mu       sync.RWMutex
	sessions map[string]model.SessionRecord
}

func New() *Client {
	return &Client{sessions: make(map[string]model.SessionRecord)}
}

func (c *Client) Close() error { return nil }

func (c *Client) SaveSession(ctx context.Context, employeeID string, rec model.SessionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[employeeID] = rec
	return nil
}

func (c *Client) LoadSession(ctx context.Context, employeeID string) (model.SessionRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.sessions[employeeID]
	return rec, ok, nil
}

func (c *Client) ClearSession(ctx context.Context, employeeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, employeeID)
	return nil
}
