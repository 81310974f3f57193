// Package session — машина состояний посещаемости одного сотрудника.
// Контроллер владеет статусом дня (NOT_CHECKED_IN → CHECKED_IN → CHECKED_OUT),
// обратным отсчётом смены и связкой хранилище ↔ HR-сервис.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/attendance/internal/countdown"
	"github.com/attendance/internal/logger"
	"github.com/attendance/internal/model"
	"github.com/attendance/internal/shift"
	"github.com/attendance/internal/storage"
)

var (
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrDayComplete      = errors.New("attendance already marked for today")
	ErrNotCheckedIn     = errors.New("not checked in")
	ErrLocationRequired = errors.New("location required")
)

// Oracle — операции HR-сервиса, нужные контроллеру. Реализация: oracle.Client.
type Oracle interface {
	CheckIn(ctx context.Context, employeeID string, loc model.Location) error
	CheckOut(ctx context.Context, employeeID string, loc model.Location) error
	TodaySummary(ctx context.Context, employeeID string, day time.Time) ([]model.DayRecord, error)
}

// Journal пишет отметки в локальный аудит. Если nil — журналирование выключено.
type Journal interface {
	Create(ctx context.Context, ev *model.AttendanceEvent) error
}

// Notifier отправляет пуш-уведомления. Если nil — пуши не отправляются.
type Notifier interface {
	Notify(ctx context.Context, employeeID, title, body string, data map[string]string)
}

// Listener получает живые события контроллера (тики, смены статуса).
// Реализация: ws.Hub. Если nil — события не транслируются.
type Listener interface {
	AttendanceTick(employeeID string, remaining int64)
	AttendanceStatus(employeeID string, view StatusView)
}

// StatusView — снимок состояния для клиента: статус, отформатированные времена,
// остаток смены в секундах.
type StatusView struct {
	EmployeeID       string       `json:"employee_id"`
	Status           model.Status `json:"status"`
	CheckInAtMS      int64        `json:"check_in_at,omitempty"`
	CheckOutAtMS     int64        `json:"check_out_at,omitempty"`
	CheckInTime      string       `json:"check_in_time,omitempty"`
	CheckOutTime     string       `json:"check_out_time,omitempty"`
	RemainingSeconds int64        `json:"remaining_seconds"`
	ShiftLabel       string       `json:"shift_label,omitempty"`
}

// Deps — зависимости контроллера. Store и Oracle обязательны, остальное опционально.
type Deps struct {
	Store    storage.SessionStore
	Oracle   Oracle
	Journal  Journal
	Notifier Notifier
	Listener Listener
	Now      func() time.Time
	Driver   *countdown.Driver
}

// Controller — один сотрудник, один день. Все переходы сериализуются внутренним
// мьютексом: следующее действие принимается только после завершения текущего.
// Тики обратного отсчёта идут мимо мьютекса (atomic + Listener), чтобы путь
// тика не пересекался по блокировкам с переходами.
type Controller struct {
	employeeID string
	store      storage.SessionStore
	oracle     Oracle
	journal    Journal
	notifier   Notifier
	listener   Listener
	now        func() time.Time
	driver     *countdown.Driver

	mu          sync.Mutex
	status      model.Status
	checkInAt   time.Time
	shiftEndAt  time.Time
	checkOutAt  time.Time
	durationSec int64

	remaining    atomic.Int64
	zeroNotified atomic.Bool
}

func NewController(employeeID string, deps Deps) *Controller {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	drv := deps.Driver
	if drv == nil {
		drv = countdown.New()
	}
	return &Controller{
		employeeID: employeeID,
		store:      deps.Store,
		oracle:     deps.Oracle,
		journal:    deps.Journal,
		notifier:   deps.Notifier,
		listener:   deps.Listener,
		now:        now,
		driver:     drv,
		status:     model.StatusNotCheckedIn,
	}
}

// CheckIn — переход NOT_CHECKED_IN → CHECKED_IN. При отказе HR-сервиса состояние
// не меняется: ни персистентности, ни таймера. Ошибка записи в хранилище не
// фатальна — смена живёт в памяти процесса, примирение при следующей активации
// восстановит корректность.
func (c *Controller) CheckIn(ctx context.Context, loc model.Location) error {
	if !loc.Valid() {
		return ErrLocationRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case model.StatusCheckedIn:
		return ErrAlreadyCheckedIn
	case model.StatusCheckedOut:
		return ErrDayComplete
	}

	if err := c.oracle.CheckIn(ctx, c.employeeID, loc); err != nil {
		return err
	}

	now := c.now()
	dur := shift.DurationFor(now)
	durSec := int64(dur / time.Second)
	checkInMS := now.UnixMilli()
	rec := model.SessionRecord{
		CheckInAtMS:     checkInMS,
		ShiftEndAtMS:    checkInMS + durSec*1000,
		DurationSeconds: durSec,
	}
	if err := c.store.SaveSession(ctx, c.employeeID, rec); err != nil {
		logger.Errorf("check-in: persist session employee=%s: %v", c.employeeID, err)
	}
	c.logEvent(ctx, model.EventCheckIn, now, loc)

	c.adoptLocked(rec)
	// Персистентность выполнена до запуска отсчёта: тик никогда не наблюдается
	// на фоне несохранённого состояния.
	c.startCountdownLocked()
	c.notifyStatusLocked()
	return nil
}

// CheckOut — переход CHECKED_IN → CHECKED_OUT. Подтверждение пользователя —
// забота вызывающего слоя (действие необратимо). При отказе HR-сервиса смена
// остаётся открытой и отсчёт продолжает идти.
func (c *Controller) CheckOut(ctx context.Context, loc model.Location) error {
	if !loc.Valid() {
		return ErrLocationRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.StatusCheckedIn {
		return ErrNotCheckedIn
	}

	if err := c.oracle.CheckOut(ctx, c.employeeID, loc); err != nil {
		return err
	}

	now := c.now()
	c.driver.Stop()
	c.status = model.StatusCheckedOut
	c.checkOutAt = now
	c.shiftEndAt = time.Time{}
	c.remaining.Store(0)
	if err := c.store.ClearSession(ctx, c.employeeID); err != nil {
		logger.Errorf("check-out: clear session employee=%s: %v", c.employeeID, err)
	}
	c.logEvent(ctx, model.EventCheckOut, now, loc)
	c.notifyStatusLocked()
	return nil
}

// Deactivate останавливает обратный отсчёт, не трогая сохранённую смену
// (экран свёрнут / клиент отключился; смена продолжается на сервере).
func (c *Controller) Deactivate() {
	c.driver.Stop()
}

// Status возвращает текущий снимок; остаток пересчитывается от конца смены,
// а не от последнего тика.
func (c *Controller) Status() StatusView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusViewLocked()
}

func (c *Controller) statusViewLocked() StatusView {
	v := StatusView{EmployeeID: c.employeeID, Status: c.status}
	if !c.checkInAt.IsZero() {
		v.CheckInAtMS = c.checkInAt.UnixMilli()
		v.CheckInTime = c.checkInAt.Format("15:04")
	}
	if !c.checkOutAt.IsZero() {
		v.CheckOutAtMS = c.checkOutAt.UnixMilli()
		v.CheckOutTime = c.checkOutAt.Format("15:04")
	}
	if c.status == model.StatusCheckedIn {
		v.RemainingSeconds = remainingSeconds(c.shiftEndAt, c.now())
		v.ShiftLabel = shift.Label(c.checkInAt)
	}
	return v
}

func remainingSeconds(end, now time.Time) int64 {
	ms := end.Sub(now).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return ms / 1000
}

// adoptLocked принимает состояние CHECKED_IN из записи хранилища или записи сервера.
func (c *Controller) adoptLocked(rec model.SessionRecord) {
	c.status = model.StatusCheckedIn
	c.checkInAt = time.UnixMilli(rec.CheckInAtMS)
	c.shiftEndAt = time.UnixMilli(rec.ShiftEndAtMS)
	c.checkOutAt = time.Time{}
	c.durationSec = rec.DurationSeconds
	c.remaining.Store(remainingSeconds(c.shiftEndAt, c.now()))
	c.zeroNotified.Store(false)
}

// resetLocked — защитный сброс в NOT_CHECKED_IN (смена пользователя, повторная активация).
func (c *Controller) resetLocked() {
	c.status = model.StatusNotCheckedIn
	c.checkInAt = time.Time{}
	c.shiftEndAt = time.Time{}
	c.checkOutAt = time.Time{}
	c.durationSec = 0
	c.remaining.Store(0)
	c.zeroNotified.Store(false)
}

func (c *Controller) startCountdownLocked() {
	if c.status != model.StatusCheckedIn {
		return
	}
	c.driver.Start(c.shiftEndAt, c.onTick)
}

// onTick выполняется в горутине драйвера; мьютекс контроллера здесь не берётся.
func (c *Controller) onTick(remaining int64) {
	c.remaining.Store(remaining)
	if c.listener != nil {
		c.listener.AttendanceTick(c.employeeID, remaining)
	}
	if remaining == 0 && c.zeroNotified.CompareAndSwap(false, true) && c.notifier != nil {
		// Пуш уходит в фоне: тик исполняется под мьютексом драйвера,
		// и сетевой вызов здесь заблокировал бы Stop на время запроса.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			c.notifier.Notify(ctx, c.employeeID, "Рабочая смена завершена",
				"Время смены истекло. Не забудьте отметить уход.",
				map[string]string{"kind": "shift_complete"})
		}()
	}
}

func (c *Controller) notifyStatusLocked() {
	if c.listener != nil {
		c.listener.AttendanceStatus(c.employeeID, c.statusViewLocked())
	}
}

// logEvent пишет отметку в журнал (best-effort: отказ журнала не влияет на переход).
func (c *Controller) logEvent(ctx context.Context, kind string, at time.Time, loc model.Location) {
	if c.journal == nil {
		return
	}
	ev := &model.AttendanceEvent{
		ID:         uuid.New().String(),
		EmployeeID: c.employeeID,
		Kind:       kind,
		At:         at.UTC(),
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Accuracy:   loc.Accuracy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.journal.Create(ctx, ev); err != nil {
		logger.Errorf("journal %s employee=%s: %v", kind, c.employeeID, err)
	}
}
