package progression

import (
	"time"

	"github.com/google/uuid"
)

// UserProgression mirrors the progression columns embedded on the user row.
// total_xp and current_level are only ever written by the XP ledger.
type UserProgression struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Username      string    `json:"username" db:"username"`
	TotalXP       int       `json:"total_xp" db:"total_xp"`
	CurrentLevel  int       `json:"current_level" db:"current_level"`
	CurrentStreak int       `json:"current_streak" db:"current_streak"`
	BestStreak    int       `json:"best_streak" db:"best_streak"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type LevelInfo struct {
	Level              int `json:"level"`
	TotalXP            int `json:"total_xp"`
	XPProgress         int `json:"xp_progress"`
	XPForNextLevel     int `json:"xp_for_next_level"`
	ProgressPercentage int `json:"progress_percentage"`
}
