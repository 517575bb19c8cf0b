package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"sweatSquadAPI/internal/types/activity"
	"sweatSquadAPI/internal/types/badge"
	"sweatSquadAPI/middleware"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// factAggregates is the read surface badge criteria are evaluated against.
// The production implementation queries activity facts and streak state;
// tests substitute an in-memory fake.
type factAggregates interface {
	ActivityCount(ctx context.Context, activityType string) (int, error)
	DistanceTotal(ctx context.Context, activityType string) (float64, error)
	DurationTotal(ctx context.Context, activityType string) (int, error)
	CreationCount(ctx context.Context) (int, error)
	CurrentStreak(ctx context.Context) (int, error)
}

// BadgeService evaluates unlock criteria against historical activity
// aggregates and records one-time grants. Per-badge failures never abort the
// rest of the batch.
type BadgeService struct {
	db            DB
	progression   *ProgressionService
	notifications *NotificationService
}

func NewBadgeService(db DB, progression *ProgressionService, notifications *NotificationService) *BadgeService {
	return &BadgeService{db: db, progression: progression, notifications: notifications}
}

// relevantCriteria maps a trigger to the criteria tags worth re-evaluating
// for it. A nil map means every active badge is considered.
func relevantCriteria(trigger activity.TriggerType) map[badge.CriteriaType]bool {
	switch trigger {
	case activity.TriggerActivityCreated:
		return map[badge.CriteriaType]bool{
			badge.CriteriaActivityCreationCount: true,
			badge.CriteriaHostEvents:            true,
		}
	case activity.TriggerActivityComplete:
		return map[badge.CriteriaType]bool{
			badge.CriteriaActivityCount: true,
			badge.CriteriaDistanceTotal: true,
			badge.CriteriaDurationTotal: true,
			badge.CriteriaStreakDays:    true,
		}
	default:
		return nil
	}
}

// CheckAndAwardBadges evaluates every relevant, not-yet-earned badge for the
// user and awards the ones whose criteria are met. Returns the badges awarded
// in this call.
func (s *BadgeService) CheckAndAwardBadges(ctx context.Context, userID uuid.UUID, trigger activity.TriggerType, actx activity.ActionContext) ([]*badge.Badge, error) {
	badges, err := s.activeBadges(ctx)
	if err != nil {
		return nil, err
	}

	earned, err := s.earnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	relevant := relevantCriteria(trigger)
	agg := &dbAggregates{db: s.db, userID: userID, creatingNow: actx.CreatingNow}

	var awarded []*badge.Badge
	for _, b := range badges {
		if earned[b.ID] {
			continue
		}
		if relevant != nil && !relevant[b.Criteria.Type] {
			continue
		}

		met, err := s.criterionMet(ctx, agg, b.Criteria)
		if err != nil {
			log.Printf("CheckAndAwardBadges: evaluation failed for badge %q user %s: %v", b.Name, userID, err)
			continue
		}
		if !met {
			continue
		}

		if err := s.awardBadge(ctx, userID, b); err != nil {
			log.Printf("CheckAndAwardBadges: award failed for badge %q user %s: %v", b.Name, userID, err)
			continue
		}
		awarded = append(awarded, b)
	}

	return awarded, nil
}

// GrantBadge awards a specific badge directly, bypassing criteria evaluation.
// Used by challenge completion for linked badges; idempotent like any grant.
func (s *BadgeService) GrantBadge(ctx context.Context, userID, badgeID uuid.UUID) error {
	b, err := s.getBadge(ctx, badgeID)
	if err != nil {
		return err
	}
	return s.awardBadge(ctx, userID, b)
}

// GetUserBadges returns every active badge annotated with the user's earned
// status, earned first.
func (s *BadgeService) GetUserBadges(ctx context.Context, userID uuid.UUID) ([]*badge.BadgeWithStatus, error) {
	query := `
	SELECT b.id, b.name, b.description, b.icon, b.rarity, b.category, b.criteria, b.xp_reward, b.is_active, b.created_at,
		CASE WHEN ub.id IS NOT NULL THEN true ELSE false END AS earned,
		ub.earned_at
	FROM badges b
	LEFT JOIN user_badges ub ON b.id = ub.badge_id AND ub.user_id = $1
	WHERE b.is_active = true
	ORDER BY earned DESC, b.created_at ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	var result []*badge.BadgeWithStatus
	for rows.Next() {
		bs := &badge.BadgeWithStatus{}
		var criteriaJSON []byte
		err := rows.Scan(
			&bs.ID, &bs.Name, &bs.Description, &bs.Icon, &bs.Rarity, &bs.Category, &criteriaJSON,
			&bs.XPReward, &bs.IsActive, &bs.CreatedAt, &bs.Earned, &bs.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		if err := json.Unmarshal(criteriaJSON, &bs.Criteria); err != nil {
			log.Printf("GetUserBadges: bad criteria on badge %s: %v", bs.ID, err)
		}
		result = append(result, bs)
	}

	if result == nil {
		result = []*badge.BadgeWithStatus{}
	}
	return result, rows.Err()
}

// GetBadgeProgress computes the toward-unlock view for every active badge the
// user has not earned yet. Read-only; shares the evaluation aggregates with
// the award path so the two can never disagree.
func (s *BadgeService) GetBadgeProgress(ctx context.Context, userID uuid.UUID) ([]*badge.Progress, error) {
	badges, err := s.activeBadges(ctx)
	if err != nil {
		return nil, err
	}
	earned, err := s.earnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	agg := &dbAggregates{db: s.db, userID: userID}

	result := []*badge.Progress{}
	for _, b := range badges {
		if earned[b.ID] {
			continue
		}

		current, target, err := s.criterionProgress(ctx, agg, b.Criteria)
		if err != nil {
			log.Printf("GetBadgeProgress: progress failed for badge %q user %s: %v", b.Name, userID, err)
			continue
		}

		result = append(result, &badge.Progress{
			BadgeID:    b.ID,
			Name:       b.Name,
			Rarity:     b.Rarity,
			Current:    current,
			Target:     target,
			Percentage: progressPercentage(current, target),
		})
	}

	return result, nil
}

// awardBadge creates the grant, pays the rarity-weighted XP and emits the
// unlock notification. The grant insert is the idempotency guard: the unique
// (user_id, badge_id) pair makes a duplicate attempt a silent no-op, so XP is
// credited at most once even under concurrent awards.
func (s *BadgeService) awardBadge(ctx context.Context, userID uuid.UUID, b *badge.Badge) error {
	query := `
	INSERT INTO user_badges (id, user_id, badge_id, earned_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	result, err := s.db.Exec(ctx, query, uuid.New(), userID, b.ID)
	if err != nil {
		return fmt.Errorf("failed to insert badge grant: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Already earned; nothing more to do.
		return nil
	}

	xp := BadgeXPReward(b.XPReward, b.Rarity)
	if _, err := s.progression.AddXP(ctx, userID, xp, "badge_"+string(b.Criteria.Type)); err != nil {
		log.Printf("awardBadge: XP award failed for badge %q user %s: %v", b.Name, userID, err)
	}

	middleware.CountBadgeUnlocked(string(b.Rarity))

	if err := s.notifications.NotifyBadgeUnlocked(ctx, userID, b.Name, xp); err != nil {
		log.Printf("awardBadge: notification failed for badge %q user %s: %v", b.Name, userID, err)
	}

	log.Printf("awardBadge: user %s unlocked %q (+%d XP)", userID, b.Name, xp)
	return nil
}

// criterionMet evaluates one tagged criterion. Unknown tags evaluate to not
// met; the social_connections dependency is not wired up yet and always
// evaluates false.
func (s *BadgeService) criterionMet(ctx context.Context, agg factAggregates, c badge.Criteria) (bool, error) {
	switch c.Type {
	case badge.CriteriaActivityCount:
		count, err := agg.ActivityCount(ctx, c.ActivityType)
		if err != nil {
			return false, err
		}
		return count >= c.Count, nil

	case badge.CriteriaActivityCreationCount, badge.CriteriaHostEvents:
		count, err := agg.CreationCount(ctx)
		if err != nil {
			return false, err
		}
		return count >= c.Count, nil

	case badge.CriteriaDistanceTotal:
		km, err := agg.DistanceTotal(ctx, c.ActivityType)
		if err != nil {
			return false, err
		}
		return km >= c.Km, nil

	case badge.CriteriaDurationTotal:
		minutes, err := agg.DurationTotal(ctx, c.ActivityType)
		if err != nil {
			return false, err
		}
		return minutes >= c.Minutes, nil

	case badge.CriteriaStreakDays:
		streak, err := agg.CurrentStreak(ctx)
		if err != nil {
			return false, err
		}
		return streak >= c.Days, nil

	case badge.CriteriaSocialConnections:
		return false, nil

	case badge.CriteriaCombined:
		for _, nested := range c.Criteria {
			met, err := s.criterionMet(ctx, agg, nested)
			if err != nil {
				return false, err
			}
			if !met {
				return false, nil
			}
		}
		return len(c.Criteria) > 0, nil

	default:
		log.Printf("criterionMet: unknown criteria type %q treated as not met", c.Type)
		return false, nil
	}
}

// criterionProgress mirrors criterionMet but returns (current, target).
// A combined criterion reports its least-complete member.
func (s *BadgeService) criterionProgress(ctx context.Context, agg factAggregates, c badge.Criteria) (float64, float64, error) {
	switch c.Type {
	case badge.CriteriaActivityCount:
		count, err := agg.ActivityCount(ctx, c.ActivityType)
		return float64(count), float64(c.Count), err

	case badge.CriteriaActivityCreationCount, badge.CriteriaHostEvents:
		count, err := agg.CreationCount(ctx)
		return float64(count), float64(c.Count), err

	case badge.CriteriaDistanceTotal:
		km, err := agg.DistanceTotal(ctx, c.ActivityType)
		return km, c.Km, err

	case badge.CriteriaDurationTotal:
		minutes, err := agg.DurationTotal(ctx, c.ActivityType)
		return float64(minutes), float64(c.Minutes), err

	case badge.CriteriaStreakDays:
		streak, err := agg.CurrentStreak(ctx)
		return float64(streak), float64(c.Days), err

	case badge.CriteriaSocialConnections:
		return 0, float64(c.Count), nil

	case badge.CriteriaCombined:
		worstCurrent, worstTarget := 0.0, 1.0
		worstPct := 101
		for _, nested := range c.Criteria {
			current, target, err := s.criterionProgress(ctx, agg, nested)
			if err != nil {
				return 0, 0, err
			}
			if pct := progressPercentage(current, target); pct < worstPct {
				worstPct = pct
				worstCurrent, worstTarget = current, target
			}
		}
		return worstCurrent, worstTarget, nil

	default:
		return 0, 1, nil
	}
}

func (s *BadgeService) activeBadges(ctx context.Context) ([]*badge.Badge, error) {
	query := `
	SELECT id, name, description, icon, rarity, category, criteria, xp_reward, is_active, created_at
	FROM badges
	WHERE is_active = true
	ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active badges: %w", err)
	}
	defer rows.Close()

	var badges []*badge.Badge
	for rows.Next() {
		b := &badge.Badge{}
		var criteriaJSON []byte
		err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.Rarity, &b.Category, &criteriaJSON, &b.XPReward, &b.IsActive, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		if err := json.Unmarshal(criteriaJSON, &b.Criteria); err != nil {
			log.Printf("activeBadges: bad criteria on badge %s: %v", b.ID, err)
			continue
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *BadgeService) getBadge(ctx context.Context, badgeID uuid.UUID) (*badge.Badge, error) {
	b := &badge.Badge{}
	var criteriaJSON []byte
	query := `
	SELECT id, name, description, icon, rarity, category, criteria, xp_reward, is_active, created_at
	FROM badges
	WHERE id = $1
	`
	err := s.db.QueryRow(ctx, query, badgeID).Scan(
		&b.ID, &b.Name, &b.Description, &b.Icon, &b.Rarity, &b.Category, &criteriaJSON, &b.XPReward, &b.IsActive, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("badge not found")
		}
		return nil, fmt.Errorf("failed to read badge: %w", err)
	}
	if err := json.Unmarshal(criteriaJSON, &b.Criteria); err != nil {
		return nil, fmt.Errorf("failed to decode badge criteria: %w", err)
	}
	return b, nil
}

func (s *BadgeService) earnedBadgeIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.db.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch earned badges: %w", err)
	}
	defer rows.Close()

	earned := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan earned badge: %w", err)
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

// SeedDefaultBadges installs the starter catalogue on a fresh deployment.
// Keyed on name; existing badges are never touched, so edits made in the
// database survive restarts.
func (s *BadgeService) SeedDefaultBadges(ctx context.Context) error {
	defaults := []struct {
		name        string
		description string
		icon        string
		rarity      badge.Rarity
		category    string
		criteria    badge.Criteria
		xpReward    int
	}{
		{"First Steps", "Complete your first activity", "shoe", badge.RarityCommon, "milestones",
			badge.Criteria{Type: badge.CriteriaActivityCount, Count: 1}, 20},
		{"Regular", "Complete 10 activities", "calendar", badge.RarityCommon, "milestones",
			badge.Criteria{Type: badge.CriteriaActivityCount, Count: 10}, 50},
		{"Centurion", "Complete 100 activities", "laurel", badge.RarityEpic, "milestones",
			badge.Criteria{Type: badge.CriteriaActivityCount, Count: 100}, 200},
		{"Host", "Create your first activity", "flag", badge.RarityCommon, "community",
			badge.Criteria{Type: badge.CriteriaActivityCreationCount, Count: 1}, 25},
		{"Organizer", "Create 10 activities", "megaphone", badge.RarityRare, "community",
			badge.Criteria{Type: badge.CriteriaActivityCreationCount, Count: 10}, 100},
		{"Marathoner", "Cover 42 km total", "medal", badge.RarityUncommon, "distance",
			badge.Criteria{Type: badge.CriteriaDistanceTotal, Km: 42.2}, 75},
		{"Globe Trotter", "Cover 1000 km total", "globe", badge.RarityLegendary, "distance",
			badge.Criteria{Type: badge.CriteriaDistanceTotal, Km: 1000}, 300},
		{"Week Streak", "Keep a 7 day streak", "fire", badge.RarityUncommon, "streaks",
			badge.Criteria{Type: badge.CriteriaStreakDays, Days: 7}, 75},
		{"Iron Will", "Keep a 30 day streak", "diamond", badge.RarityEpic, "streaks",
			badge.Criteria{Type: badge.CriteriaStreakDays, Days: 30}, 250},
		{"Committed Runner", "Run 10 times and cover 50 km", "trophy", badge.RarityRare, "running",
			badge.Criteria{Type: badge.CriteriaCombined, Criteria: []badge.Criteria{
				{Type: badge.CriteriaActivityCount, ActivityType: "running", Count: 10},
				{Type: badge.CriteriaDistanceTotal, ActivityType: "running", Km: 50},
			}}, 150},
	}

	for _, d := range defaults {
		criteriaJSON, err := json.Marshal(d.criteria)
		if err != nil {
			return fmt.Errorf("failed to encode badge criteria: %w", err)
		}

		query := `
		INSERT INTO badges (id, name, description, icon, rarity, category, criteria, xp_reward, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, NOW())
		ON CONFLICT (name) DO NOTHING
		`
		_, err = s.db.Exec(ctx, query, uuid.New(), d.name, d.description, d.icon, d.rarity, d.category, criteriaJSON, d.xpReward)
		if err != nil {
			return fmt.Errorf("failed to seed badge %q: %w", d.name, err)
		}
	}
	return nil
}

// BadgeXPReward weights the base reward by rarity, rounded to the nearest XP.
func BadgeXPReward(baseXP int, rarity badge.Rarity) int {
	return int(math.Round(float64(baseXP) * rarity.Multiplier()))
}

func progressPercentage(current, target float64) int {
	if target <= 0 {
		return 100
	}
	pct := int(math.Round(100 * current / target))
	if pct > 100 {
		return 100
	}
	return pct
}

// dbAggregates answers criteria questions from the activity fact history,
// the pending-creation log and the streak row.
type dbAggregates struct {
	db          DB
	userID      uuid.UUID
	creatingNow bool
}

func (a *dbAggregates) ActivityCount(ctx context.Context, activityType string) (int, error) {
	var count int
	var err error
	if activityType != "" {
		err = a.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM activity_facts WHERE user_id = $1 AND activity_type = $2`,
			a.userID, activityType).Scan(&count)
	} else {
		err = a.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM activity_facts WHERE user_id = $1`, a.userID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

func (a *dbAggregates) DistanceTotal(ctx context.Context, activityType string) (float64, error) {
	var km float64
	var err error
	if activityType != "" {
		err = a.db.QueryRow(ctx,
			`SELECT COALESCE(SUM(distance_km), 0) FROM activity_facts WHERE user_id = $1 AND activity_type = $2`,
			a.userID, activityType).Scan(&km)
	} else {
		err = a.db.QueryRow(ctx,
			`SELECT COALESCE(SUM(distance_km), 0) FROM activity_facts WHERE user_id = $1`, a.userID).Scan(&km)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to sum distance: %w", err)
	}
	return km, nil
}

func (a *dbAggregates) DurationTotal(ctx context.Context, activityType string) (int, error) {
	var minutes int
	var err error
	if activityType != "" {
		err = a.db.QueryRow(ctx,
			`SELECT COALESCE(SUM(duration_minutes), 0) FROM activity_facts WHERE user_id = $1 AND activity_type = $2`,
			a.userID, activityType).Scan(&minutes)
	} else {
		err = a.db.QueryRow(ctx,
			`SELECT COALESCE(SUM(duration_minutes), 0) FROM activity_facts WHERE user_id = $1`, a.userID).Scan(&minutes)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to sum duration: %w", err)
	}
	return minutes, nil
}

// CreationCount is hosted completions plus still-pending creations. When the
// triggering request is itself creating an activity, that in-flight creation
// counts too, so a creation badge can unlock in the same request that earns
// it, before the new activity's own row lands.
func (a *dbAggregates) CreationCount(ctx context.Context) (int, error) {
	var hosted, pending int
	err := a.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_facts WHERE user_id = $1 AND is_host = true`, a.userID).Scan(&hosted)
	if err != nil {
		return 0, fmt.Errorf("failed to count hosted activities: %w", err)
	}
	err = a.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_creations WHERE user_id = $1 AND completed = false`, a.userID).Scan(&pending)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending creations: %w", err)
	}

	count := hosted + pending
	if a.creatingNow {
		count++
	}
	return count, nil
}

func (a *dbAggregates) CurrentStreak(ctx context.Context) (int, error) {
	var streak int
	err := a.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(current_streak), 0) FROM streaks WHERE user_id = $1`, a.userID).Scan(&streak)
	if err != nil {
		return 0, fmt.Errorf("failed to read streak: %w", err)
	}
	return streak, nil
}
