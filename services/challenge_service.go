package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"sweatSquadAPI/internal/types/activity"
	"sweatSquadAPI/internal/types/challenge"
	"sweatSquadAPI/middleware"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChallengeService tracks time-windowed challenge instances: enrolling users
// into active definitions, advancing progress on each triggering action and
// completing or expiring instances against their windows.
type ChallengeService struct {
	db            DB
	progression   *ProgressionService
	badges        *BadgeService
	notifications *NotificationService
}

func NewChallengeService(db DB, progression *ProgressionService, badges *BadgeService, notifications *NotificationService) *ChallengeService {
	return &ChallengeService{db: db, progression: progression, badges: badges, notifications: notifications}
}

// ActivateChallengesForUser enrolls the user into every active, in-window
// definition they have no instance for yet. Re-activation is a no-op per
// (user, challenge) pair.
func (s *ChallengeService) ActivateChallengesForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	defs, err := s.activeDefinitions(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	activated := 0
	for _, def := range defs {
		query := `
		INSERT INTO user_challenges (id, user_id, challenge_id, current_progress, target_count, status, started_at, expires_at)
		VALUES ($1, $2, $3, 0, $4, 'active', NOW(), $5)
		ON CONFLICT (user_id, challenge_id) DO NOTHING
		`
		result, err := s.db.Exec(ctx, query, uuid.New(), userID, def.ID, def.TargetCount, def.EndDate)
		if err != nil {
			return activated, fmt.Errorf("failed to activate challenge %q: %w", def.Name, err)
		}
		if result.RowsAffected() > 0 {
			activated++
		}
	}
	return activated, nil
}

// ActivateChallengesForAllUsers enrolls every user. Used by the scheduler
// after recurring definitions roll over.
func (s *ChallengeService) ActivateChallengesForAllUsers(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `SELECT id FROM users`)
	if err != nil {
		return fmt.Errorf("failed to list users for challenge activation: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := s.ActivateChallengesForUser(ctx, id); err != nil {
			log.Printf("ActivateChallengesForAllUsers: activation failed for %s: %v", id, err)
		}
	}
	return nil
}

// UpdateChallengeProgress advances every active instance the user holds by the
// increment the triggering action is worth, completing instances that reach
// their target. One instance failing never blocks the others.
func (s *ChallengeService) UpdateChallengeProgress(ctx context.Context, userID uuid.UUID, trigger activity.TriggerType, actx activity.ActionContext) error {
	instances, err := s.activeInstances(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, inst := range instances {
		def, err := s.getDefinition(ctx, inst.ChallengeID)
		if err != nil {
			log.Printf("UpdateChallengeProgress: definition read failed for %s: %v", inst.ChallengeID, err)
			continue
		}

		inc := progressIncrement(def.Criteria, trigger, actx, now)
		if inc <= 0 {
			continue
		}

		if err := s.applyProgress(ctx, inst, def, inc); err != nil {
			log.Printf("UpdateChallengeProgress: progress failed for %q user %s: %v", def.Name, userID, err)
		}
	}
	return nil
}

// applyProgress bumps one instance and runs the completion rewards when it
// crosses its target. The increment is relative so concurrent bumps are
// commutative, and the status='active' guard on the completion update makes
// concurrent completions award at most once.
func (s *ChallengeService) applyProgress(ctx context.Context, inst *challenge.UserChallenge, def *challenge.Challenge, inc int) error {
	query := `
	UPDATE user_challenges
	SET current_progress = current_progress + $2
	WHERE id = $1 AND status = 'active'
	RETURNING current_progress
	`
	var newProgress int
	err := s.db.QueryRow(ctx, query, inst.ID, inc).Scan(&newProgress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No longer active; nothing to bump.
			return nil
		}
		return fmt.Errorf("failed to update challenge progress: %w", err)
	}

	if newProgress < inst.TargetCount {
		return nil
	}

	complete := `
	UPDATE user_challenges
	SET status = 'completed', completed_at = NOW()
	WHERE id = $1 AND status = 'active'
	`
	result, err := s.db.Exec(ctx, complete, inst.ID)
	if err != nil {
		return fmt.Errorf("failed to complete challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Someone else completed or expired it first.
		return nil
	}

	middleware.CountChallengeCompleted(string(def.ChallengeType))
	log.Printf("applyProgress: user %s completed %q (+%d XP)", inst.UserID, def.Name, def.XPReward)

	if _, err := s.progression.AddXP(ctx, inst.UserID, def.XPReward, "challenge_"+string(def.ChallengeType)); err != nil {
		log.Printf("applyProgress: XP award failed for %q user %s: %v", def.Name, inst.UserID, err)
	}

	if def.BadgeID != nil {
		if err := s.badges.GrantBadge(ctx, inst.UserID, *def.BadgeID); err != nil {
			log.Printf("applyProgress: linked badge grant failed for %q user %s: %v", def.Name, inst.UserID, err)
		}
	}

	if err := s.notifications.NotifyChallengeCompleted(ctx, inst.UserID, def.Name, def.XPReward); err != nil {
		log.Printf("applyProgress: notification failed for %q user %s: %v", def.Name, inst.UserID, err)
	}

	return nil
}

// GetUserActiveChallenges joins the user's active instances with their
// definitions for the API view.
func (s *ChallengeService) GetUserActiveChallenges(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallengeDetail, error) {
	query := `
	SELECT uc.id, uc.user_id, uc.challenge_id, uc.current_progress, uc.target_count, uc.status,
		uc.started_at, uc.completed_at, uc.expires_at,
		c.name, c.description, c.challenge_type, c.xp_reward
	FROM user_challenges uc
	JOIN challenges c ON c.id = uc.challenge_id
	WHERE uc.user_id = $1 AND uc.status = 'active'
	ORDER BY uc.expires_at ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active challenges: %w", err)
	}
	defer rows.Close()

	result := []*challenge.UserChallengeDetail{}
	for rows.Next() {
		d := &challenge.UserChallengeDetail{}
		err := rows.Scan(
			&d.ID, &d.UserID, &d.ChallengeID, &d.CurrentProgress, &d.TargetCount, &d.Status,
			&d.StartedAt, &d.CompletedAt, &d.ExpiresAt,
			&d.Name, &d.Description, &d.ChallengeType, &d.XPReward,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// ExpireOverdueChallenges marks every active instance past its window as
// expired. Runs hourly.
func (s *ChallengeService) ExpireOverdueChallenges(ctx context.Context) (int64, error) {
	query := `
	UPDATE user_challenges
	SET status = 'expired'
	WHERE status = 'active' AND expires_at < NOW()
	`
	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to expire challenges: %w", err)
	}
	return result.RowsAffected(), nil
}

// EnsureRecurringChallenges upserts the rolling definitions of one cadence so
// the current window always has a live definition. Keyed on (name,
// challenge_type); the upsert only moves the window, so a definition edited in
// the database keeps its rewards.
func (s *ChallengeService) EnsureRecurringChallenges(ctx context.Context, ctype challenge.ChallengeType) error {
	now := time.Now()
	for _, def := range recurringDefinitions(ctype, now) {
		criteriaJSON, err := json.Marshal(def.Criteria)
		if err != nil {
			return fmt.Errorf("failed to encode challenge criteria: %w", err)
		}

		query := `
		INSERT INTO challenges (id, name, description, challenge_type, start_date, end_date, target_count, criteria, xp_reward, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, NOW())
		ON CONFLICT (name, challenge_type)
		DO UPDATE SET start_date = $5, end_date = $6, is_active = true
		`
		_, err = s.db.Exec(ctx, query, uuid.New(), def.Name, def.Description, def.ChallengeType,
			def.StartDate, def.EndDate, def.TargetCount, criteriaJSON, def.XPReward)
		if err != nil {
			return fmt.Errorf("failed to upsert challenge %q: %w", def.Name, err)
		}
	}
	return nil
}

func (s *ChallengeService) activeDefinitions(ctx context.Context, now time.Time) ([]*challenge.Challenge, error) {
	query := `
	SELECT id, name, description, challenge_type, start_date, end_date, target_count, criteria, xp_reward, badge_id, is_active, created_at
	FROM challenges
	WHERE is_active = true AND start_date <= $1 AND end_date >= $1
	ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge definitions: %w", err)
	}
	defer rows.Close()

	var defs []*challenge.Challenge
	for rows.Next() {
		def, err := scanChallenge(rows.Scan)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *ChallengeService) getDefinition(ctx context.Context, challengeID uuid.UUID) (*challenge.Challenge, error) {
	query := `
	SELECT id, name, description, challenge_type, start_date, end_date, target_count, criteria, xp_reward, badge_id, is_active, created_at
	FROM challenges
	WHERE id = $1
	`
	row := s.db.QueryRow(ctx, query, challengeID)
	return scanChallenge(row.Scan)
}

func scanChallenge(scan func(...any) error) (*challenge.Challenge, error) {
	def := &challenge.Challenge{}
	var criteriaJSON []byte
	err := scan(
		&def.ID, &def.Name, &def.Description, &def.ChallengeType, &def.StartDate, &def.EndDate,
		&def.TargetCount, &criteriaJSON, &def.XPReward, &def.BadgeID, &def.IsActive, &def.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}
	if err := json.Unmarshal(criteriaJSON, &def.Criteria); err != nil {
		return nil, fmt.Errorf("failed to decode challenge criteria: %w", err)
	}
	return def, nil
}

func (s *ChallengeService) activeInstances(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallenge, error) {
	query := `
	SELECT id, user_id, challenge_id, current_progress, target_count, status, started_at, completed_at, expires_at
	FROM user_challenges
	WHERE user_id = $1 AND status = 'active'
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge instances: %w", err)
	}
	defer rows.Close()

	var instances []*challenge.UserChallenge
	for rows.Next() {
		inst := &challenge.UserChallenge{}
		err := rows.Scan(
			&inst.ID, &inst.UserID, &inst.ChallengeID, &inst.CurrentProgress, &inst.TargetCount,
			&inst.Status, &inst.StartedAt, &inst.CompletedAt, &inst.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge instance: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// progressIncrement is the units one action contributes to a criterion.
// Period-scoped metrics are gated on the action's effective date landing in
// the window computed against now; an unknown metric contributes nothing.
func progressIncrement(c challenge.Criteria, trigger activity.TriggerType, actx activity.ActionContext, now time.Time) int {
	// Connection metrics only move on connection triggers and vice versa.
	if c.Metric == challenge.MetricSocialConnections {
		if trigger == activity.TriggerNewConnection {
			return 1
		}
		return 0
	}
	if trigger != activity.TriggerActivityComplete && trigger != activity.TriggerActivityCreated {
		return 0
	}

	effective := actx.EffectiveDate(now)

	switch c.Metric {
	case challenge.MetricActivityCount:
		return 1

	case challenge.MetricActivitiesInPeriod:
		if inPeriodWindow(c.Period, effective, now) {
			return 1
		}
		return 0

	case challenge.MetricDistanceTotal:
		// Progress is stored in whole km to match the integer targets, so each
		// activity rounds and anything under half a km contributes nothing.
		return int(math.Round(actx.DistanceKm))

	case challenge.MetricDistanceInPeriod:
		if inPeriodWindow(c.Period, effective, now) {
			return int(math.Round(actx.DistanceKm))
		}
		return 0

	case challenge.MetricDurationTotal:
		return actx.DurationMinutes

	case challenge.MetricDurationInPeriod:
		if inPeriodWindow(c.Period, effective, now) {
			return actx.DurationMinutes
		}
		return 0

	case challenge.MetricSportSpecific:
		if c.ActivityType != "" && actx.ActivityType != c.ActivityType {
			return 0
		}
		if c.Period != "" && c.Period != challenge.PeriodAny && !inPeriodWindow(c.Period, effective, now) {
			return 0
		}
		return 1

	case challenge.MetricSportVariety:
		// Distinct-sport tracking would need per-instance sport sets; each
		// activity counts once for now.
		return 1

	default:
		return 0
	}
}

// inPeriodWindow reports whether t falls in the named window anchored at now.
// Windows are wall-clock: "day" is now's calendar day, "week" runs from the
// most recent Sunday, "weekend" is the current Saturday/Sunday, "month" is
// now's calendar month.
func inPeriodWindow(period challenge.Period, t, now time.Time) bool {
	switch period {
	case challenge.PeriodDay:
		return t.Year() == now.Year() && t.YearDay() == now.YearDay()

	case challenge.PeriodWeek:
		start := mostRecentSunday(now)
		return !t.Before(start) && t.Before(start.AddDate(0, 0, 7))

	case challenge.PeriodWeekend:
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday {
			return false
		}
		// Saturday or Sunday within the current Sunday-started week.
		start := mostRecentSunday(now)
		return !t.Before(start) && t.Before(start.AddDate(0, 0, 7))

	case challenge.PeriodMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()

	case challenge.PeriodAny, "":
		return true

	default:
		return false
	}
}

// mostRecentSunday is midnight UTC of the Sunday on or before t.
func mostRecentSunday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// recurringDefinitions is the rolling catalogue per cadence, windowed around
// now. Limited-time challenges are seeded by hand and never roll over.
func recurringDefinitions(ctype challenge.ChallengeType, now time.Time) []*challenge.Challenge {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch ctype {
	case challenge.TypeDaily:
		end := today.AddDate(0, 0, 1).Add(-time.Second)
		return []*challenge.Challenge{
			{
				Name:          "Daily Mover",
				Description:   "Complete an activity today",
				ChallengeType: challenge.TypeDaily,
				StartDate:     today,
				EndDate:       end,
				TargetCount:   1,
				Criteria:      challenge.Criteria{Metric: challenge.MetricActivitiesInPeriod, Period: challenge.PeriodDay},
				XPReward:      20,
			},
			{
				Name:          "Half Hour Hustle",
				Description:   "Log 30 minutes of activity today",
				ChallengeType: challenge.TypeDaily,
				StartDate:     today,
				EndDate:       end,
				TargetCount:   30,
				Criteria:      challenge.Criteria{Metric: challenge.MetricDurationInPeriod, Period: challenge.PeriodDay},
				XPReward:      30,
			},
		}

	case challenge.TypeWeekly:
		start := mostRecentSunday(now)
		end := start.AddDate(0, 0, 7).Add(-time.Second)
		return []*challenge.Challenge{
			{
				Name:          "Weekly Warrior",
				Description:   "Complete 5 activities this week",
				ChallengeType: challenge.TypeWeekly,
				StartDate:     start,
				EndDate:       end,
				TargetCount:   5,
				Criteria:      challenge.Criteria{Metric: challenge.MetricActivitiesInPeriod, Period: challenge.PeriodWeek},
				XPReward:      100,
			},
			{
				Name:          "Weekend Explorer",
				Description:   "Get out for an activity on the weekend",
				ChallengeType: challenge.TypeWeekly,
				StartDate:     start,
				EndDate:       end,
				TargetCount:   1,
				Criteria:      challenge.Criteria{Metric: challenge.MetricActivitiesInPeriod, Period: challenge.PeriodWeekend},
				XPReward:      50,
			},
		}

	case challenge.TypeMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		return []*challenge.Challenge{
			{
				Name:          "Distance Devotee",
				Description:   "Cover 50 km this month",
				ChallengeType: challenge.TypeMonthly,
				StartDate:     start,
				EndDate:       end,
				TargetCount:   50,
				Criteria:      challenge.Criteria{Metric: challenge.MetricDistanceInPeriod, Period: challenge.PeriodMonth},
				XPReward:      300,
			},
			{
				Name:          "Social Butterfly",
				Description:   "Make 3 new connections this month",
				ChallengeType: challenge.TypeMonthly,
				StartDate:     start,
				EndDate:       end,
				TargetCount:   3,
				Criteria:      challenge.Criteria{Metric: challenge.MetricSocialConnections},
				XPReward:      150,
			},
		}

	default:
		return nil
	}
}
