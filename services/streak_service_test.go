package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStreakTransition(t *testing.T) {
	monday := day(2025, time.June, 2)

	// Same day is a no-op.
	assert.Equal(t, streakNoop, streakTransition(monday, monday))

	// Next day increments.
	assert.Equal(t, streakIncrement, streakTransition(monday, monday.AddDate(0, 0, 1)))

	// A two day gap resets.
	assert.Equal(t, streakReset, streakTransition(monday, monday.AddDate(0, 0, 2)))
	assert.Equal(t, streakReset, streakTransition(monday, monday.AddDate(0, 0, 30)))

	// Backfilled activities before the last recorded day never shrink a streak.
	assert.Equal(t, streakNoop, streakTransition(monday, monday.AddDate(0, 0, -3)))
}

func TestStreakTransitionAcrossMidnight(t *testing.T) {
	// 23:58 and 00:02 the next day are two minutes apart but consecutive days.
	lateNight := time.Date(2025, time.June, 2, 23, 58, 0, 0, time.UTC)
	earlyMorning := time.Date(2025, time.June, 3, 0, 2, 0, 0, time.UTC)

	assert.Equal(t, streakIncrement, streakTransition(normalizeDay(lateNight), normalizeDay(earlyMorning)))
}

func TestStreakTransitionAcrossMonthBoundary(t *testing.T) {
	assert.Equal(t, streakIncrement, streakTransition(day(2025, time.June, 30), day(2025, time.July, 1)))
	assert.Equal(t, streakIncrement, streakTransition(day(2024, time.December, 31), day(2025, time.January, 1)))
}

func TestStreakBonusXP(t *testing.T) {
	assert.Equal(t, 0, StreakBonusXP(0))
	assert.Equal(t, 0, StreakBonusXP(1))
	assert.Equal(t, 10, StreakBonusXP(2))
	assert.Equal(t, 15, StreakBonusXP(3))
	assert.Equal(t, 50, StreakBonusXP(10))
}

func TestDaysBetween(t *testing.T) {
	monday := day(2025, time.June, 2)

	assert.Equal(t, 0, daysBetween(monday, monday))
	assert.Equal(t, 1, daysBetween(monday, monday.AddDate(0, 0, 1)))
	assert.Equal(t, 7, daysBetween(monday, monday.AddDate(0, 0, 7)))
	assert.Equal(t, -1, daysBetween(monday, monday.AddDate(0, 0, -1)))

	// Time-of-day never matters.
	assert.Equal(t, 1, daysBetween(
		time.Date(2025, time.June, 2, 23, 59, 59, 0, time.UTC),
		time.Date(2025, time.June, 3, 0, 0, 1, 0, time.UTC),
	))
}

func TestNormalizeDay(t *testing.T) {
	noon := time.Date(2025, time.June, 2, 12, 34, 56, 789, time.UTC)
	assert.Equal(t, day(2025, time.June, 2), normalizeDay(noon))
}
