package session

import (
	"context"
	"time"

	"github.com/attendance/internal/logger"
	"github.com/attendance/internal/model"
	"github.com/attendance/internal/shift"
)

// Reconcile приводит контроллер к согласованному состоянию при активации
// (вход на экран, переподключение клиента, рестарт агента):
//
//  1. сброс в NOT_CHECKED_IN, остановка отсчёта;
//  2. локальный кэш: живая смена принимается предварительно, протухшая
//     (конец в прошлом) или неконсистентная — вычищается;
//  3. сводка HR-сервиса за сегодня — авторитетна и всегда побеждает кэш;
//     при недоступности сервиса кэшированный вид сохраняется как есть;
//  4. отсчёт запускается только для итогового CHECKED_IN.
//
// Метод идемпотентен: повторный вызов без смены внешнего состояния даёт
// тот же результат.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.driver.Stop()
	c.resetLocked()
	now := c.now()

	rec, ok, err := c.store.LoadSession(ctx, c.employeeID)
	switch {
	case err != nil:
		logger.Errorf("reconcile: load session employee=%s: %v", c.employeeID, err)
	case ok && rec.Consistent() && rec.ShiftEndAtMS > now.UnixMilli():
		c.adoptLocked(rec)
	case ok:
		// Запись пережила собственную смену либо повреждена — в обоих случаях
		// держать её дальше нельзя.
		if err := c.store.ClearSession(ctx, c.employeeID); err != nil {
			logger.Errorf("reconcile: clear stale session employee=%s: %v", c.employeeID, err)
		}
	}

	records, err := c.oracle.TodaySummary(ctx, c.employeeID, now)
	if err != nil {
		logger.Errorf("reconcile: summary unavailable, keeping cached view employee=%s: %v", c.employeeID, err)
		c.startCountdownLocked()
		c.notifyStatusLocked()
		return nil
	}
	if day := todayRecord(records); day != nil {
		c.applyRemoteLocked(ctx, day)
	}

	c.startCountdownLocked()
	c.notifyStatusLocked()
	return nil
}

// todayRecord выбирает первую запись с проставленным приходом; запись без
// inTime эквивалентна её отсутствию.
func todayRecord(records []model.DayRecord) *model.DayRecord {
	for i := range records {
		if records[i].InTime != nil {
			return &records[i]
		}
	}
	return nil
}

// applyRemoteLocked накладывает авторитетную запись сервера поверх кэшированного
// состояния. Приход без ухода — открытая смена: конец пересчитывается от
// серверного времени прихода по политике смен, расхождение с кэшем устраняется
// и фиксируется в хранилище. Приход с уходом — день закрыт, кэш очищается.
func (c *Controller) applyRemoteLocked(ctx context.Context, day *model.DayRecord) {
	if day.OutTime != nil {
		c.driver.Stop()
		c.status = model.StatusCheckedOut
		c.checkInAt = *day.InTime
		c.checkOutAt = *day.OutTime
		c.shiftEndAt = time.Time{}
		c.durationSec = 0
		c.remaining.Store(0)
		if err := c.store.ClearSession(ctx, c.employeeID); err != nil {
			logger.Errorf("reconcile: clear completed session employee=%s: %v", c.employeeID, err)
		}
		return
	}

	inMS := day.InTime.UnixMilli()
	if c.status == model.StatusCheckedIn && c.checkInAt.UnixMilli() == inMS {
		return // кэш совпадает с сервером
	}
	durSec := int64(shift.DurationFor(*day.InTime) / time.Second)
	rec := model.SessionRecord{
		CheckInAtMS:     inMS,
		ShiftEndAtMS:    inMS + durSec*1000,
		DurationSeconds: durSec,
	}
	c.adoptLocked(rec)
	if err := c.store.SaveSession(ctx, c.employeeID, rec); err != nil {
		logger.Errorf("reconcile: persist adopted session employee=%s: %v", c.employeeID, err)
	}
}
