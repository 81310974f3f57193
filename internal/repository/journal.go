package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attendance/internal/logger"
	"github.com/attendance/internal/model"
)

var ErrNotFound = errors.New("not found")

// JournalRepository — локальный журнал отметок (аудит). HR-сервис остаётся
// источником истины; журнал — вспомогательная история для отладки и отчётов.
type JournalRepository struct {
	pool *pgxpool.Pool
}

func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

func (r *JournalRepository) Create(ctx context.Context, ev *model.AttendanceEvent) error {
	defer logger.DeferLogDuration("journal.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attendance_events (id, employee_id, kind, at, latitude, longitude, accuracy, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.EmployeeID, ev.Kind, ev.At, ev.Latitude, ev.Longitude, ev.Accuracy, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("journalRepo.Create: %w", err)
	}
	return nil
}

// ListByEmployee возвращает отметки сотрудника за интервал [from, to], новые сверху.
func (r *JournalRepository) ListByEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]model.AttendanceEvent, error) {
	defer logger.DeferLogDuration("journal.ListByEmployee", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, employee_id, kind, at, latitude, longitude, accuracy, created_at
		 FROM attendance_events
		 WHERE employee_id = $1 AND at >= $2 AND at <= $3
		 ORDER BY at DESC`, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("journalRepo.ListByEmployee: %w", err)
	}
	defer rows.Close()
	var list []model.AttendanceEvent
	for rows.Next() {
		var ev model.AttendanceEvent
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &ev.Kind, &ev.At, &ev.Latitude, &ev.Longitude, &ev.Accuracy, &ev.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
