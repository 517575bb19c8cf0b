package badge

import (
	"time"

	"github.com/google/uuid"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Multiplier weights a badge's base XP reward by rarity. Unknown rarities
// fall back to common.
func (r Rarity) Multiplier() float64 {
	switch r {
	case RarityUncommon:
		return 1.5
	case RarityRare:
		return 2.0
	case RarityEpic:
		return 3.0
	case RarityLegendary:
		return 5.0
	default:
		return 1.0
	}
}

type CriteriaType string

const (
	CriteriaActivityCount         CriteriaType = "activity_count"
	CriteriaActivityCreationCount CriteriaType = "activity_creation_count"
	// host_events is a legacy alias for activity_creation_count still present
	// in seeded definitions.
	CriteriaHostEvents        CriteriaType = "host_events"
	CriteriaDistanceTotal     CriteriaType = "distance_total"
	CriteriaDurationTotal     CriteriaType = "duration_total"
	CriteriaStreakDays        CriteriaType = "streak_days"
	CriteriaSocialConnections CriteriaType = "social_connections"
	CriteriaCombined          CriteriaType = "combined"
)

// Criteria is the tagged unlock condition stored as JSONB on the badge row.
// Which fields are meaningful depends on Type; unknown types always evaluate
// to not-met.
type Criteria struct {
	Type         CriteriaType `json:"type"`
	ActivityType string       `json:"activity_type,omitempty"`
	Count        int          `json:"count,omitempty"`
	Km           float64      `json:"km,omitempty"`
	Minutes      int          `json:"minutes,omitempty"`
	Days         int          `json:"days,omitempty"`
	Criteria     []Criteria   `json:"criteria,omitempty"`
}

type Badge struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	Rarity      Rarity    `json:"rarity" db:"rarity"`
	Category    string    `json:"category" db:"category"`
	Criteria    Criteria  `json:"criteria" db:"criteria"`
	XPReward    int       `json:"xp_reward" db:"xp_reward"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserBadge records a grant. The (user_id, badge_id) pair is unique at the
// data layer; a grant is created exactly once and never deleted.
type UserBadge struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	BadgeID  uuid.UUID `json:"badge_id" db:"badge_id"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
}

type BadgeWithStatus struct {
	Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// Progress is the read-only toward-unlock view for badges not yet earned.
type Progress struct {
	BadgeID    uuid.UUID `json:"badge_id"`
	Name       string    `json:"name"`
	Rarity     Rarity    `json:"rarity"`
	Current    float64   `json:"current"`
	Target     float64   `json:"target"`
	Percentage int       `json:"percentage"`
}
