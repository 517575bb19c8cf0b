package notification

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBadgeUnlocked      Kind = "badge_unlocked"
	KindLevelUp            Kind = "level_up"
	KindChallengeCompleted Kind = "challenge_completed"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Notification struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	UserID        uuid.UUID      `json:"user_id" db:"user_id"`
	Kind          Kind           `json:"kind" db:"kind"`
	Title         string         `json:"title" db:"title"`
	Body          string         `json:"body" db:"body"`
	Data          map[string]any `json:"data,omitempty" db:"data"`
	Status        Status         `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	SentAt        *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	FailedAt      *time.Time     `json:"failed_at,omitempty" db:"failed_at"`
	FailureReason *string        `json:"failure_reason,omitempty" db:"failure_reason"`
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"`
}
