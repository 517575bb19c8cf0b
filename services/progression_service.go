package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sweatSquadAPI/internal/types/progression"
	"sweatSquadAPI/middleware"
	"sweatSquadAPI/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProgressionService is the XP ledger: the only code path that mutates
// total_xp and current_level. Every write recomputes the level from the
// level table and refreshes the user's leaderboard rank.
type ProgressionService struct {
	db            DB
	leaderboards  *LeaderboardService
	notifications *NotificationService
}

func NewProgressionService(db DB, leaderboards *LeaderboardService, notifications *NotificationService) *ProgressionService {
	return &ProgressionService{
		db:            db,
		leaderboards:  leaderboards,
		notifications: notifications,
	}
}

// AddXP applies a delta to the user's running total and recomputes the level.
// A missing user is reported to the caller; rank refresh and level-up
// notification failures are logged and swallowed since neither invalidates
// the ledger write itself.
func (s *ProgressionService) AddXP(ctx context.Context, userID uuid.UUID, amount int, source string) (*progression.LevelInfo, error) {
	// The relative update keeps concurrent awards commutative: two
	// simultaneous credits both land instead of the later read-modify-write
	// clobbering the earlier one.
	query := `
	UPDATE users
	SET total_xp = GREATEST(0, total_xp + $2), updated_at = NOW()
	WHERE id = $1
	RETURNING total_xp, current_level
	`
	var newTotal, currentLevel int
	err := s.db.QueryRow(ctx, query, userID, amount).Scan(&newTotal, &currentLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to write user progression: %w", err)
	}

	newLevel := utils.LevelForXP(newTotal)
	if newLevel != currentLevel {
		if _, err := s.db.Exec(ctx, `UPDATE users SET current_level = $2 WHERE id = $1`, userID, newLevel); err != nil {
			return nil, fmt.Errorf("failed to write user level: %w", err)
		}
	}

	log.Printf("AddXP: user %s +%d XP (%s) → total=%d level=%d", userID, amount, source, newTotal, newLevel)
	middleware.CountXPAwarded(source, amount)

	if newLevel > currentLevel {
		if err := s.notifications.NotifyLevelUp(ctx, userID, newLevel); err != nil {
			log.Printf("AddXP: level-up notification failed for %s: %v", userID, err)
		}
	}

	if _, err := s.leaderboards.UpdateUserRank(ctx, userID); err != nil {
		log.Printf("AddXP: rank refresh failed for %s: %v", userID, err)
	}

	return levelInfoFor(newTotal), nil
}

// GetLevelInfo returns the derived level view for a user.
func (s *ProgressionService) GetLevelInfo(ctx context.Context, userID uuid.UUID) (*progression.LevelInfo, error) {
	var totalXP int
	err := s.db.QueryRow(ctx, `SELECT total_xp FROM users WHERE id = $1`, userID).Scan(&totalXP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to read user xp: %w", err)
	}

	return levelInfoFor(totalXP), nil
}

// GetProgression returns the full progression snapshot embedded on the user.
func (s *ProgressionService) GetProgression(ctx context.Context, userID uuid.UUID) (*progression.UserProgression, error) {
	p := &progression.UserProgression{}
	query := `
	SELECT id, username, total_xp, current_level, current_streak, best_streak, updated_at
	FROM users
	WHERE id = $1
	`
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Username, &p.TotalXP, &p.CurrentLevel, &p.CurrentStreak, &p.BestStreak, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to read user progression: %w", err)
	}
	return p, nil
}

func levelInfoFor(totalXP int) *progression.LevelInfo {
	level := utils.LevelForXP(totalXP)
	xpProgress, pct := utils.LevelProgress(totalXP)
	return &progression.LevelInfo{
		Level:              level,
		TotalXP:            totalXP,
		XPProgress:         xpProgress,
		XPForNextLevel:     utils.XPForNextLevel(level),
		ProgressPercentage: pct,
	}
}
