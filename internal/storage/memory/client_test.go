package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance/internal/model"
)

func TestSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	c := New()

	rec := model.SessionRecord{CheckInAtMS: 1_000_000, ShiftEndAtMS: 1_000_000 + 30600*1000, DurationSeconds: 30600}
	require.NoError(t, c.SaveSession(ctx, "emp-1", rec))

	got, ok, err := c.LoadSession(ctx, "emp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	require.NoError(t, c.ClearSession(ctx, "emp-1"))
	_, ok, err = c.LoadSession(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadMissing(t *testing.T) {
	c := New()
	_, ok, err := c.LoadSession(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Смены разных сотрудников не пересекаются: очистка одного не трогает другого.
func TestEmployeeScoping(t *testing.T) {
	ctx := context.Background()
	c := New()

	recA := model.SessionRecord{CheckInAtMS: 100, ShiftEndAtMS: 100 + 30600*1000, DurationSeconds: 30600}
	recB := model.SessionRecord{CheckInAtMS: 200, ShiftEndAtMS: 200 + 25200*1000, DurationSeconds: 25200}
	require.NoError(t, c.SaveSession(ctx, "emp-a", recA))
	require.NoError(t, c.SaveSession(ctx, "emp-b", recB))

	require.NoError(t, c.ClearSession(ctx, "emp-a"))

	_, ok, _ := c.LoadSession(ctx, "emp-a")
	assert.False(t, ok)
	got, ok, _ := c.LoadSession(ctx, "emp-b")
	require.True(t, ok)
	assert.Equal(t, recB, got)
}
