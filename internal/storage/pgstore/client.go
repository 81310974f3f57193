package pgstore

import (
	"context"

	"github.com/attendance/internal/model"
	"github.com/attendance/internal/repository"
)

// Client реализует SessionStore поверх Postgres для режима -dev:
// не требует Redis, смены переживают перезапуск агента.
type Client struct {
	repo *repository.SessionStateRepository
}

func New(repo *repository.SessionStateRepository) *Client {
	return &Client{repo: repo}
}

func (c *Client) Close() error { return nil }

func (c *Client) SaveSession(ctx context.Context, employeeID string, rec model.SessionRecord) error {
	return c.repo.Save(ctx, employeeID, rec)
}

func (c *Client) LoadSession(ctx context.Context, employeeID string) (model.SessionRecord, bool, error) {
	return c.repo.Load(ctx, employeeID)
}

func (c *Client) ClearSession(ctx context.Context, employeeID string) error {
	return c.repo.Clear(ctx, employeeID)
}
