package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForXP(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(149))
	assert.Equal(t, 2, LevelForXP(150))
	assert.Equal(t, 2, LevelForXP(299))
	assert.Equal(t, 3, LevelForXP(300))

	// Last XP step into the cap and beyond it.
	assert.Equal(t, 100, LevelForXP(14850))
	assert.Equal(t, 100, LevelForXP(999999))

	// Negative totals clamp to level 1.
	assert.Equal(t, 1, LevelForXP(-50))
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 150, XPForNextLevel(1))
	assert.Equal(t, 150, XPForNextLevel(99))
	assert.Equal(t, 0, XPForNextLevel(100))
	assert.Equal(t, 0, XPForNextLevel(150))
}

func TestLevelProgress(t *testing.T) {
	progress, pct := LevelProgress(0)
	assert.Equal(t, 0, progress)
	assert.Equal(t, 0, pct)

	progress, pct = LevelProgress(75)
	assert.Equal(t, 75, progress)
	assert.Equal(t, 50, pct)

	progress, pct = LevelProgress(149)
	assert.Equal(t, 149, progress)
	assert.Equal(t, 99, pct)

	progress, pct = LevelProgress(150)
	assert.Equal(t, 0, progress)
	assert.Equal(t, 0, pct)

	// At the cap the bar reads full no matter the surplus.
	_, pct = LevelProgress(20000)
	assert.Equal(t, 100, pct)
}

func TestLevelTable(t *testing.T) {
	table := LevelTable()
	assert.Len(t, table, 100)

	assert.Equal(t, 1, table[0].Level)
	assert.Equal(t, 0, table[0].XPRequiredCumulative)
	assert.Equal(t, 150, table[0].XPForNextLevel)

	assert.Equal(t, 100, table[99].Level)
	assert.Equal(t, 14850, table[99].XPRequiredCumulative)
	assert.Equal(t, 0, table[99].XPForNextLevel)
}
