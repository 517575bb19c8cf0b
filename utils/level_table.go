package utils

import "math"

// The level curve is deliberately flat: every level costs the same 150 XP.
// Level 100 is terminal and requires no further XP.
const (
	XPPerLevel = 150
	MaxLevel   = 100
)

type LevelTableRow struct {
	Level                int `json:"level"`
	XPRequiredCumulative int `json:"xp_required_cumulative"`
	XPForNextLevel       int `json:"xp_for_next_level"`
}

// LevelForXP maps a running XP total to a level in [1, MaxLevel].
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	level := totalXP/XPPerLevel + 1
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// XPForNextLevel is the XP still meaningful at the given level: the flat step
// below the cap, zero at the cap.
func XPForNextLevel(level int) int {
	if level >= MaxLevel {
		return 0
	}
	return XPPerLevel
}

// LevelProgress returns the XP accumulated inside the current level and the
// rounded percentage toward the next one. At the cap the percentage is 100.
func LevelProgress(totalXP int) (xpProgress int, percentage int) {
	level := LevelForXP(totalXP)
	xpProgress = totalXP - (level-1)*XPPerLevel
	step := XPForNextLevel(level)
	if step == 0 {
		return xpProgress, 100
	}
	return xpProgress, int(math.Round(100 * float64(xpProgress) / float64(step)))
}

// LevelTable generates the full read-only lookup table.
func LevelTable() []LevelTableRow {
	rows := make([]LevelTableRow, 0, MaxLevel)
	for level := 1; level <= MaxLevel; level++ {
		rows = append(rows, LevelTableRow{
			Level:                level,
			XPRequiredCumulative: (level - 1) * XPPerLevel,
			XPForNextLevel:       XPForNextLevel(level),
		})
	}
	return rows
}
