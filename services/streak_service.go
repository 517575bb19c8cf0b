package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sweatSquadAPI/internal/types/activity"
	"sweatSquadAPI/internal/types/streak"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// streakOutcome classifies what one activity day does to the streak state.
type streakOutcome int

const (
	streakNoop streakOutcome = iota
	streakIncrement
	streakReset
)

// StreakService maintains the per-user consecutive-day state machine.
// All date comparisons happen at day granularity; two activities two minutes
// apart across midnight still count as consecutive days.
type StreakService struct {
	db          DB
	progression *ProgressionService
	badges      *BadgeService
}

func NewStreakService(db DB, progression *ProgressionService, badges *BadgeService) *StreakService {
	return &StreakService{db: db, progression: progression, badges: badges}
}

// UpdateStreak advances the streak for an activity on the given date.
// Same-day activities are no-ops, a one-day gap increments, anything larger
// resets to 1. Reaching streak n>1 pays a 5*n XP bonus and re-checks
// streak badges; neither side effect can fail the streak write itself.
func (s *StreakService) UpdateStreak(ctx context.Context, userID uuid.UUID, activityDate time.Time) (*streak.Streak, error) {
	day := normalizeDay(activityDate)

	st, err := s.getStreakRow(ctx, userID)
	if err != nil {
		return nil, err
	}

	if st == nil {
		created, err := s.createStreakRow(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		s.syncUserColumns(ctx, userID, created.CurrentStreak, created.BestStreak)
		return created, nil
	}

	switch streakTransition(st.LastActivityDay, day) {
	case streakNoop:
		return st, nil

	case streakIncrement:
		st.CurrentStreak++
		if st.CurrentStreak > st.BestStreak {
			st.BestStreak = st.CurrentStreak
		}
		st.LastActivityDay = day
		if err := s.writeStreakRow(ctx, st); err != nil {
			return nil, err
		}
		s.syncUserColumns(ctx, userID, st.CurrentStreak, st.BestStreak)

		if bonus := StreakBonusXP(st.CurrentStreak); bonus > 0 {
			if _, err := s.progression.AddXP(ctx, userID, bonus, "streak_bonus"); err != nil {
				log.Printf("UpdateStreak: bonus XP failed for %s: %v", userID, err)
			}
		}
		if _, err := s.badges.CheckAndAwardBadges(ctx, userID, activity.TriggerStreakUpdated, activity.ActionContext{}); err != nil {
			log.Printf("UpdateStreak: streak badge check failed for %s: %v", userID, err)
		}
		return st, nil

	default: // streakReset
		st.CurrentStreak = 1
		st.LastActivityDay = day
		if err := s.writeStreakRow(ctx, st); err != nil {
			return nil, err
		}
		s.syncUserColumns(ctx, userID, st.CurrentStreak, st.BestStreak)
		return st, nil
	}
}

// GetStreak returns the user's streak state; users with no recorded activity
// get a zero-valued state rather than an error.
func (s *StreakService) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	st, err := s.getStreakRow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &streak.Streak{UserID: userID}, nil
	}
	return st, nil
}

// ExpireBrokenStreaks zeroes every streak whose owner skipped both yesterday
// and today. Runs daily; best_streak is never touched.
func (s *StreakService) ExpireBrokenStreaks(ctx context.Context) (int64, error) {
	query := `
	UPDATE streaks
	SET current_streak = 0, updated_at = NOW()
	WHERE current_streak > 0
	  AND last_activity_day < CURRENT_DATE - INTERVAL '1 day'
	`

	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to expire streaks: %w", err)
	}

	// Keep the embedded user columns in step with the streak rows.
	sync := `
	UPDATE users u
	SET current_streak = 0, updated_at = NOW()
	FROM streaks s
	WHERE s.user_id = u.id
	  AND s.current_streak = 0
	  AND u.current_streak > 0
	`
	if _, err := s.db.Exec(ctx, sync); err != nil {
		log.Printf("ExpireBrokenStreaks: user column sync failed: %v", err)
	}

	return result.RowsAffected(), nil
}

func (s *StreakService) getStreakRow(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	st := &streak.Streak{}
	query := `
	SELECT id, user_id, current_streak, best_streak, last_activity_day, created_at, updated_at
	FROM streaks
	WHERE user_id = $1
	`
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&st.ID, &st.UserID, &st.CurrentStreak, &st.BestStreak, &st.LastActivityDay, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read streak: %w", err)
	}
	return st, nil
}

func (s *StreakService) createStreakRow(ctx context.Context, userID uuid.UUID, day time.Time) (*streak.Streak, error) {
	st := &streak.Streak{
		ID:              uuid.New(),
		UserID:          userID,
		CurrentStreak:   1,
		BestStreak:      1,
		LastActivityDay: day,
	}

	// ON CONFLICT guards against two first-activity requests racing; the
	// loser just rereads the winner's row.
	query := `
	INSERT INTO streaks (id, user_id, current_streak, best_streak, last_activity_day, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (user_id) DO NOTHING
	`
	result, err := s.db.Exec(ctx, query, st.ID, st.UserID, st.CurrentStreak, st.BestStreak, st.LastActivityDay)
	if err != nil {
		return nil, fmt.Errorf("failed to create streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		existing, err := s.getStreakRow(ctx, userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create streak: concurrent insert vanished")
	}
	return st, nil
}

func (s *StreakService) writeStreakRow(ctx context.Context, st *streak.Streak) error {
	query := `
	UPDATE streaks
	SET current_streak = $2, best_streak = $3, last_activity_day = $4, updated_at = NOW()
	WHERE user_id = $1
	`
	if _, err := s.db.Exec(ctx, query, st.UserID, st.CurrentStreak, st.BestStreak, st.LastActivityDay); err != nil {
		return fmt.Errorf("failed to write streak: %w", err)
	}
	return nil
}

func (s *StreakService) syncUserColumns(ctx context.Context, userID uuid.UUID, current, best int) {
	query := `
	UPDATE users
	SET current_streak = $2, best_streak = GREATEST(best_streak, $3), updated_at = NOW()
	WHERE id = $1
	`
	if _, err := s.db.Exec(ctx, query, userID, current, best); err != nil {
		log.Printf("UpdateStreak: user column sync failed for %s: %v", userID, err)
	}
}

// streakTransition compares two day-normalized dates. Days before or equal
// to the last recorded day are no-ops so backfilled activities never shrink
// a streak.
func streakTransition(lastDay, day time.Time) streakOutcome {
	gap := daysBetween(lastDay, day)
	switch {
	case gap <= 0:
		return streakNoop
	case gap == 1:
		return streakIncrement
	default:
		return streakReset
	}
}

// StreakBonusXP pays 5 XP per day of the streak once it is longer than one.
func StreakBonusXP(currentStreak int) int {
	if currentStreak <= 1 {
		return 0
	}
	return 5 * currentStreak
}

func normalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(normalizeDay(to).Sub(normalizeDay(from)).Hours() / 24)
}
