package leaderboard

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the denormalized, rank-sorted projection of one user's XP total.
// It may be stale between refresh cycles and is never the source of truth
// for total_xp.
type Entry struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	TotalXP   int       `json:"total_xp" db:"total_xp"`
	Rank      int       `json:"rank" db:"rank"`
	Medal     string    `json:"medal,omitempty"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Page struct {
	Entries    []*Entry `json:"entries"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalUsers int      `json:"total_users"`
}
