package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationFor(t *testing.T) {
	// 2026-08-24 — понедельник, 2026-08-29 — суббота, 2026-08-30 — воскресенье.
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 8*time.Hour+30*time.Minute, DurationFor(monday))
	assert.Equal(t, 7*time.Hour, DurationFor(saturday))
	// Воскресенье трактуется как будний день.
	assert.Equal(t, DurationMonFri, DurationFor(sunday))
}

func TestDurationForIgnoresTimeOfDay(t *testing.T) {
	early := time.Date(2026, 8, 29, 0, 0, 1, 0, time.UTC)
	late := time.Date(2026, 8, 29, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, DurationFor(early), DurationFor(late))
}

func TestLabel(t *testing.T) {
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "8-Hour 30-Minute Shift", Label(monday))
	assert.Equal(t, "7-Hour Shift", Label(saturday))
}
