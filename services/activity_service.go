package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"sweatSquadAPI/internal/types/activity"

	"github.com/google/uuid"
)

// XP paid per triggering action, before any streak or badge bonuses.
const (
	XPActivityComplete = 50
	XPActivityCreate   = 25
)

// ActivityService is the reward cascade entry point: it records the
// triggering action and then runs XP, streak, badge and challenge updates in
// order. Stages after the first are isolated; one failing is logged and the
// rest still run, except that a failed XP ledger write stops the cascade so a
// later stage never pays rewards on top of an unrecorded base award.
type ActivityService struct {
	db          DB
	progression *ProgressionService
	streaks     *StreakService
	badges      *BadgeService
	challenges  *ChallengeService
}

func NewActivityService(db DB, progression *ProgressionService, streaks *StreakService, badges *BadgeService, challenges *ChallengeService) *ActivityService {
	return &ActivityService{
		db:          db,
		progression: progression,
		streaks:     streaks,
		badges:      badges,
		challenges:  challenges,
	}
}

// RecordActivityCompleted persists the completion fact and runs the full
// cascade. The fact insert is the only stage that can fail the call; once the
// fact is down, the action has happened and the rewards are best-effort.
func (s *ActivityService) RecordActivityCompleted(ctx context.Context, userID uuid.UUID, actx activity.ActionContext) error {
	now := time.Now()
	activityDate := actx.EffectiveDate(now)

	fact := &activity.Fact{
		ID:              uuid.New(),
		UserID:          userID,
		ActivityType:    actx.ActivityType,
		ActivityDate:    activityDate,
		DurationMinutes: actx.DurationMinutes,
		DistanceKm:      actx.DistanceKm,
		IsHost:          actx.IsHost,
	}

	query := `
	INSERT INTO activity_facts (id, user_id, activity_type, activity_date, duration_minutes, distance_km, is_host, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := s.db.Exec(ctx, query, fact.ID, fact.UserID, fact.ActivityType, fact.ActivityDate,
		fact.DurationMinutes, fact.DistanceKm, fact.IsHost)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	if actx.IsHost {
		s.markCreationCompleted(ctx, userID)
	}

	if _, err := s.progression.AddXP(ctx, userID, XPActivityComplete, "activity_complete"); err != nil {
		log.Printf("RecordActivityCompleted: XP award failed for %s, skipping reward cascade: %v", userID, err)
		return nil
	}

	if _, err := s.streaks.UpdateStreak(ctx, userID, activityDate); err != nil {
		log.Printf("RecordActivityCompleted: streak update failed for %s: %v", userID, err)
	}

	if _, err := s.badges.CheckAndAwardBadges(ctx, userID, activity.TriggerActivityComplete, actx); err != nil {
		log.Printf("RecordActivityCompleted: badge check failed for %s: %v", userID, err)
	}

	if err := s.challenges.UpdateChallengeProgress(ctx, userID, activity.TriggerActivityComplete, actx); err != nil {
		log.Printf("RecordActivityCompleted: challenge update failed for %s: %v", userID, err)
	}

	return nil
}

// RecordActivityCreated rewards creating (hosting) an activity before anyone
// has completed it. The pending creation row keeps creation-count badges
// honest until the host's own completion fact lands.
func (s *ActivityService) RecordActivityCreated(ctx context.Context, userID uuid.UUID, actx activity.ActionContext) error {
	query := `
	INSERT INTO activity_creations (id, user_id, activity_type, scheduled_at, completed, created_at)
	VALUES ($1, $2, $3, $4, false, NOW())
	`
	_, err := s.db.Exec(ctx, query, uuid.New(), userID, actx.ActivityType, actx.ScheduledAt)
	if err != nil {
		return fmt.Errorf("failed to record activity creation: %w", err)
	}

	if _, err := s.progression.AddXP(ctx, userID, XPActivityCreate, "activity_create"); err != nil {
		log.Printf("RecordActivityCreated: XP award failed for %s, skipping reward cascade: %v", userID, err)
		return nil
	}

	actx.CreatingNow = true
	actx.IsHost = true

	if _, err := s.badges.CheckAndAwardBadges(ctx, userID, activity.TriggerActivityCreated, actx); err != nil {
		log.Printf("RecordActivityCreated: badge check failed for %s: %v", userID, err)
	}

	if err := s.challenges.UpdateChallengeProgress(ctx, userID, activity.TriggerActivityCreated, actx); err != nil {
		log.Printf("RecordActivityCreated: challenge update failed for %s: %v", userID, err)
	}

	return nil
}

// RecordNewConnection advances connection-metric challenges. No XP or streak
// movement; connections only matter to challenges (and, eventually, badges).
func (s *ActivityService) RecordNewConnection(ctx context.Context, userID uuid.UUID) error {
	if err := s.challenges.UpdateChallengeProgress(ctx, userID, activity.TriggerNewConnection, activity.ActionContext{}); err != nil {
		return fmt.Errorf("failed to update connection challenges: %w", err)
	}
	return nil
}

// markCreationCompleted flips the oldest pending creation once its host
// completes an activity, so it stops double-counting against the host's
// completion fact.
func (s *ActivityService) markCreationCompleted(ctx context.Context, userID uuid.UUID) {
	query := `
	UPDATE activity_creations
	SET completed = true
	WHERE id = (
		SELECT id FROM activity_creations
		WHERE user_id = $1 AND completed = false
		ORDER BY created_at ASC
		LIMIT 1
	)
	`
	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		log.Printf("markCreationCompleted: failed for %s: %v", userID, err)
	}
}
