package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/attendance/internal/model"
)

// Смена живёт в пределах суток; TTL 48 часов — страховка от осиротевших ключей
// (просроченная смена и так инвалидируется при загрузке, см. Controller.Reconcile).
const sessionTTL = 48 * time.Hour

const (
	keyCheckIn  = "att:checkin:"
	keyShiftEnd = "att:shiftend:"
	keyDuration = "att:duration:"
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SaveSession пишет три ключа смены одним TxPipeline — атомарно с точки зрения читателей.
func (c *Client) SaveSession(ctx context.Context, employeeID string, rec model.SessionRecord) error {
	pipe := c.cli.TxPipeline()
	pipe.Set(ctx, keyCheckIn+employeeID, strconv.FormatInt(rec.CheckInAtMS, 10), sessionTTL)
	pipe.Set(ctx, keyShiftEnd+employeeID, strconv.FormatInt(rec.ShiftEndAtMS, 10), sessionTTL)
	pipe.Set(ctx, keyDuration+employeeID, strconv.FormatInt(rec.DurationSeconds, 10), sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// LoadSession читает три ключа одним MGET. Смена присутствует, только если заданы все три.
func (c *Client) LoadSession(ctx context.Context, employeeID string) (model.SessionRecord, bool, error) {
	vals, err := c.cli.MGet(ctx, keyCheckIn+employeeID, keyShiftEnd+employeeID, keyDuration+employeeID).Result()
	if err != nil {
		return model.SessionRecord{}, false, fmt.Errorf("redis load session: %w", err)
	}
	nums := make([]int64, 3)
	for i, v := range vals {
		s, ok := v.(string)
		if !ok || s == "" {
			return model.SessionRecord{}, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.SessionRecord{}, false, nil
		}
		nums[i] = n
	}
	rec := model.SessionRecord{CheckInAtMS: nums[0], ShiftEndAtMS: nums[1], DurationSeconds: nums[2]}
	return rec, true, nil
}

// ClearSession удаляет все ключи смены сотрудника (ключи других сотрудников не затрагиваются).
func (c *Client) ClearSession(ctx context.Context, employeeID string) error {
	if err := c.cli.Del(ctx, keyCheckIn+employeeID, keyShiftEnd+employeeID, keyDuration+employeeID).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

// FlushDB очищает текущую БД Redis (для сброса состояния при тестах/перезапуске).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
