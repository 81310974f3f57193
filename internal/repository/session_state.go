package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attendance/internal/logger"
	"github.com/attendance/internal/model"
)

// SessionStateRepository хранит незавершённую смену в Postgres — режим -dev без Redis:
// смены переживают перезапуск агента. Одна строка на сотрудника.
type SessionStateRepository struct {
	pool *pgxpool.Pool
}

func NewSessionStateRepository(pool *pgxpool.Pool) *SessionStateRepository {
	return &SessionStateRepository{pool: pool}
}

// Save — upsert по employee_id: все поля смены пишутся одной операцией.
func (r *SessionStateRepository) Save(ctx context.Context, employeeID string, rec model.SessionRecord) error {
	defer logger.DeferLogDuration("sessionState.Save", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attendance_sessions (employee_id, check_in_at_ms, shift_end_at_ms, duration_seconds, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (employee_id) DO UPDATE SET
		   check_in_at_ms = EXCLUDED.check_in_at_ms,
		   shift_end_at_ms = EXCLUDED.shift_end_at_ms,
		   duration_seconds = EXCLUDED.duration_seconds,
		   updated_at = NOW()`,
		employeeID, rec.CheckInAtMS, rec.ShiftEndAtMS, rec.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("sessionStateRepo.Save: %w", err)
	}
	return nil
}

func (r *SessionStateRepository) Load(ctx context.Context, employeeID string) (model.SessionRecord, bool, error) {
	defer logger.DeferLogDuration("sessionState.Load", time.Now())()
	var rec model.SessionRecord
	row := r.pool.QueryRow(ctx,
		`SELECT check_in_at_ms, shift_end_at_ms, duration_seconds
		 FROM attendance_sessions WHERE employee_id = $1`, employeeID)
	err := row.Scan(&rec.CheckInAtMS, &rec.ShiftEndAtMS, &rec.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SessionRecord{}, false, nil
		}
		return model.SessionRecord{}, false, fmt.Errorf("sessionStateRepo.Load: %w", err)
	}
	return rec, true, nil
}

func (r *SessionStateRepository) Clear(ctx context.Context, employeeID string) error {
	defer logger.DeferLogDuration("sessionState.Clear", time.Now())()
	_, err := r.pool.Exec(ctx, `DELETE FROM attendance_sessions WHERE employee_id = $1`, employeeID)
	if err != nil {
		return fmt.Errorf("sessionStateRepo.Clear: %w", err)
	}
	return nil
}
