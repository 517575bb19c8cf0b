package challenge

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	TypeDaily       ChallengeType = "daily"
	TypeWeekly      ChallengeType = "weekly"
	TypeMonthly     ChallengeType = "monthly"
	TypeLimitedTime ChallengeType = "limited_time"
)

// Period scopes a metric to a window computed against wall-clock now at
// evaluation time, not against the challenge's own start date.
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodWeekend Period = "weekend"
	PeriodMonth   Period = "month"
	PeriodAny     Period = "any"
)

type Metric string

const (
	MetricActivitiesInPeriod Metric = "activities_in_period"
	MetricActivityCount      Metric = "activity_count"
	MetricDistanceInPeriod   Metric = "distance_in_period"
	MetricDistanceTotal      Metric = "distance_total"
	MetricDurationInPeriod   Metric = "duration_in_period"
	MetricDurationTotal      Metric = "duration_total"
	MetricSportSpecific      Metric = "sport_specific"
	MetricSportVariety       Metric = "sport_variety"
	MetricSocialConnections  Metric = "social_connections"
)

// Criteria is the tagged progress condition stored as JSONB on the challenge
// row. ActivityType narrows sport_specific (and optionally other metrics);
// Period is empty for all-time metrics.
type Criteria struct {
	Metric       Metric `json:"metric"`
	Period       Period `json:"period,omitempty"`
	ActivityType string `json:"activity_type,omitempty"`
}

type Challenge struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description" db:"description"`
	ChallengeType ChallengeType `json:"challenge_type" db:"challenge_type"`
	StartDate     time.Time     `json:"start_date" db:"start_date"`
	EndDate       time.Time     `json:"end_date" db:"end_date"`
	TargetCount   int           `json:"target_count" db:"target_count"`
	Criteria      Criteria      `json:"criteria" db:"criteria"`
	XPReward      int           `json:"xp_reward" db:"xp_reward"`
	BadgeID       *uuid.UUID    `json:"badge_id,omitempty" db:"badge_id"`
	IsActive      bool          `json:"is_active" db:"is_active"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// UserChallenge is one user's run at a challenge. The (user_id, challenge_id)
// pair is unique; status only ever moves active→completed or active→expired.
type UserChallenge struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID     uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	CurrentProgress int        `json:"current_progress" db:"current_progress"`
	TargetCount     int        `json:"target_count" db:"target_count"`
	Status          Status     `json:"status" db:"status"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ExpiresAt       time.Time  `json:"expires_at" db:"expires_at"`
}

// UserChallengeDetail joins the instance with its definition for API reads.
type UserChallengeDetail struct {
	UserChallenge
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	ChallengeType ChallengeType `json:"challenge_type"`
	XPReward      int           `json:"xp_reward"`
}
