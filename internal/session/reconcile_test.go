package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance/internal/model"
	"github.com/attendance/internal/storage/memory"
)

func liveRecord(checkIn time.Time, durSec int64) model.SessionRecord {
	return model.SessionRecord{
		CheckInAtMS:     checkIn.UnixMilli(),
		ShiftEndAtMS:    checkIn.UnixMilli() + durSec*1000,
		DurationSeconds: durSec,
	}
}

func TestReconcileAdoptsCachedSessionConfirmedByRemote(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	checkIn := monday
	require.NoError(t, store.SaveSession(ctx, "emp-1", liveRecord(checkIn, 30600)))

	now := monday.Add(2 * time.Hour)
	hr := &fakeOracle{summary: []model.DayRecord{{InTime: &checkIn}}}
	c := newTestController(t, now, store, hr)

	require.NoError(t, c.Reconcile(ctx))

	view := c.Status()
	assert.Equal(t, model.StatusCheckedIn, view.Status)
	assert.Equal(t, checkIn.UnixMilli(), view.CheckInAtMS)
	assert.Equal(t, int64(30600-7200), view.RemainingSeconds)
}

// Запись, пережившая конец собственной смены, вычищается при активации.
func TestReconcileClearsStaleSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	yesterday := monday.AddDate(0, 0, -1)
	require.NoError(t, store.SaveSession(ctx, "emp-1", liveRecord(yesterday, 30600)))

	c := newTestController(t, monday, store, &fakeOracle{})
	require.NoError(t, c.Reconcile(ctx))

	assert.Equal(t, model.StatusNotCheckedIn, c.Status().Status)
	_, ok, _ := store.LoadSession(ctx, "emp-1")
	assert.False(t, ok)
}

func TestReconcileClearsInconsistentRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	broken := model.SessionRecord{
		CheckInAtMS:     monday.UnixMilli(),
		ShiftEndAtMS:    monday.UnixMilli() + 999, // арифметика не сходится
		DurationSeconds: 30600,
	}
	require.NoError(t, store.SaveSession(ctx, "emp-1", broken))

	c := newTestController(t, monday.Add(time.Minute), store, &fakeOracle{})
	require.NoError(t, c.Reconcile(ctx))

	assert.Equal(t, model.StatusNotCheckedIn, c.Status().Status)
	_, ok, _ := store.LoadSession(ctx, "emp-1")
	assert.False(t, ok)
}

// Сервер знает об открытой смене, кэша нет (другое устройство, потерянный кэш):
// состояние принимается от сервера, конец пересчитывается по политике смен,
// запись восстанавливается в хранилище.
func TestReconcileAdoptsRemoteOpenShift(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	checkIn := monday
	now := monday.Add(time.Hour)
	hr := &fakeOracle{summary: []model.DayRecord{{InTime: &checkIn}}}
	c := newTestController(t, now, store, hr)

	require.NoError(t, c.Reconcile(ctx))

	view := c.Status()
	assert.Equal(t, model.StatusCheckedIn, view.Status)
	assert.Equal(t, checkIn.UnixMilli(), view.CheckInAtMS)
	assert.Equal(t, int64(30600-3600), view.RemainingSeconds)

	rec, ok, _ := store.LoadSession(ctx, "emp-1")
	require.True(t, ok)
	assert.Equal(t, checkIn.UnixMilli(), rec.CheckInAtMS)
	assert.Equal(t, int64(30600), rec.DurationSeconds)
	assert.True(t, rec.Consistent())
}

// Кэш и сервер расходятся по времени прихода — сервер побеждает.
func TestReconcileRemoteWinsOverCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cachedIn := monday.Add(-time.Hour)
	require.NoError(t, store.SaveSession(ctx, "emp-1", liveRecord(cachedIn, 30600)))

	remoteIn := monday
	hr := &fakeOracle{summary: []model.DayRecord{{InTime: &remoteIn}}}
	c := newTestController(t, monday.Add(time.Minute), store, hr)

	require.NoError(t, c.Reconcile(ctx))

	assert.Equal(t, remoteIn.UnixMilli(), c.Status().CheckInAtMS)
	rec, ok, _ := store.LoadSession(ctx, "emp-1")
	require.True(t, ok)
	assert.Equal(t, remoteIn.UnixMilli(), rec.CheckInAtMS)
}

func TestReconcileCompletedDay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	checkIn := monday
	require.NoError(t, store.SaveSession(ctx, "emp-1", liveRecord(checkIn, 30600)))

	out := monday.Add(8 * time.Hour)
	hr := &fakeOracle{summary: []model.DayRecord{{InTime: &checkIn, OutTime: &out}}}
	c := newTestController(t, monday.Add(9*time.Hour), store, hr)

	require.NoError(t, c.Reconcile(ctx))

	view := c.Status()
	assert.Equal(t, model.StatusCheckedOut, view.Status)
	assert.Equal(t, checkIn.UnixMilli(), view.CheckInAtMS)
	assert.Equal(t, out.UnixMilli(), view.CheckOutAtMS)
	assert.Zero(t, view.RemainingSeconds)

	_, ok, _ := store.LoadSession(ctx, "emp-1")
	assert.False(t, ok, "завершённый день не должен оставлять кэш")
}

// HR-сервис недоступен — кэшированное состояние сохраняется, ошибки наружу нет.
func TestReconcileKeepsCacheWhenRemoteUnavailable(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	checkIn := monday
	require.NoError(t, store.SaveSession(ctx, "emp-1", liveRecord(checkIn, 30600)))

	hr := &fakeOracle{summaryErr: assert.AnError}
	c := newTestController(t, monday.Add(time.Hour), store, hr)

	require.NoError(t, c.Reconcile(ctx))
	assert.Equal(t, model.StatusCheckedIn, c.Status().Status)
	_, ok, _ := store.LoadSession(ctx, "emp-1")
	assert.True(t, ok)
}

// Пустая сводка не затирает живой кэш: отсутствие записи не доказательство ухода.
func TestReconcileEmptyRemoteKeepsLiveCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveSession(ctx, "emp-1", liveRecord(monday, 30600)))

	c := newTestController(t, monday.Add(time.Hour), store, &fakeOracle{})
	require.NoError(t, c.Reconcile(ctx))

	assert.Equal(t, model.StatusCheckedIn, c.Status().Status)
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	checkIn := monday
	hr := &fakeOracle{summary: []model.DayRecord{{InTime: &checkIn}}}
	c := newTestController(t, monday.Add(time.Hour), store, hr)

	require.NoError(t, c.Reconcile(ctx))
	first := c.Status()
	require.NoError(t, c.Reconcile(ctx))
	second := c.Status()

	assert.Equal(t, first, second)
}

func TestManagerActivateAndDeactivate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	checkIn := monday
	hr := &fakeOracle{summary: []model.DayRecord{{InTime: &checkIn}}}
	m := NewManager(Deps{
		Store:  store,
		Oracle: hr,
		Now:    func() time.Time { return monday.Add(time.Hour) },
	})
	defer m.Shutdown()

	c, err := m.Activate(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, c.Status().Status)

	// Один контроллер на сотрудника.
	assert.Same(t, c, m.Controller("emp-1"))
	assert.NotSame(t, c, m.Controller("emp-2"))

	m.Deactivate("emp-1")
	// Деактивация не трогает сохранённую смену.
	_, ok, _ := store.LoadSession(ctx, "emp-1")
	assert.True(t, ok)
}
