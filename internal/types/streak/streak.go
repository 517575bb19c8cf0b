package streak

import (
	"time"

	"github.com/google/uuid"
)

// Streak holds a user's consecutive-day activity state. One row per user,
// created lazily on the first recorded activity. LastActivityDay is stored at
// day granularity; time of day is never compared.
type Streak struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	CurrentStreak   int       `json:"current_streak" db:"current_streak"`
	BestStreak      int       `json:"best_streak" db:"best_streak"`
	LastActivityDay time.Time `json:"last_activity_day" db:"last_activity_day"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
