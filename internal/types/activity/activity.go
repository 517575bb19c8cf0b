package activity

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType classifies the action that kicked off a badge/challenge check.
type TriggerType string

const (
	TriggerActivityComplete   TriggerType = "activity_complete"
	TriggerActivityCreated    TriggerType = "activity_created"
	TriggerStreakUpdated      TriggerType = "streak_updated"
	TriggerChallengeCompleted TriggerType = "challenge_completed"
	TriggerNewConnection      TriggerType = "new_connection"
)

// Fact is the append-only record of a completed activity. It is written once
// when the activity completes and is the source of truth for every aggregate
// badge and challenge criterion.
type Fact struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	ActivityType    string    `json:"activity_type" db:"activity_type"`
	ActivityDate    time.Time `json:"activity_date" db:"activity_date"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	DistanceKm      float64   `json:"distance_km" db:"distance_km"`
	IsHost          bool      `json:"is_host" db:"is_host"`
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
}

// ActionContext carries the details of the action being processed through the
// badge and challenge checks. CreatingNow signals that an activity is being
// created in the current request, before its own fact is persisted.
type ActionContext struct {
	ActivityType    string     `json:"activity_type"`
	DistanceKm      float64    `json:"distance_km"`
	DurationMinutes int        `json:"duration_minutes"`
	IsHost          bool       `json:"is_host"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CreatingNow     bool       `json:"-"`
}

// EffectiveDate is the timestamp challenge period windows are checked against:
// completion time when present, otherwise the scheduled date, otherwise now.
func (c ActionContext) EffectiveDate(now time.Time) time.Time {
	if c.CompletedAt != nil {
		return *c.CompletedAt
	}
	if c.ScheduledAt != nil {
		return *c.ScheduledAt
	}
	return now
}
