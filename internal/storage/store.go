package storage

import (
	"context"

	"github.com/attendance/internal/model"
)

// SessionStore — долговременное хранилище незавершённой смены, с разбивкой по сотрудникам.
// Реализации: redis.Client (production), memory.Client (тесты), pgstore.Client (-dev без Redis).
//
// Ключи строго изолированы по employeeID: данные разных сотрудников не пересекаются,
// очистка одного не затрагивает других. Хранилище — кэш производительности;
// источник истины всегда HR-сервис (см. session.Controller.Reconcile).
type SessionStore interface {
	// SaveSession записывает все поля смены одной пакетной операцией.
	SaveSession(ctx context.Context, employeeID string, rec model.SessionRecord) error
	// LoadSession возвращает (запись, true) или (zero, false), если смены нет.
	LoadSession(ctx context.Context, employeeID string) (model.SessionRecord, bool, error)
	// ClearSession удаляет все ключи смены сотрудника.
	ClearSession(ctx context.Context, employeeID string) error
	Close() error
}
