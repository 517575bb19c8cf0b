package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sweatSquadAPI/internal/types/leaderboard"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LeaderboardService maintains the denormalized, rank-sorted projection of
// user XP totals. Per-user updates keep the cache warm between the full
// rebuilds that are the actual ranking authority.
type LeaderboardService struct {
	db DB
}

func NewLeaderboardService(db DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// UpdateUserRank recomputes one user's rank as (count of users with strictly
// more XP) + 1 and upserts the cache entry. The scan is O(number of users)
// per call; acceptable at this scale, revisit with a rank-ordered index if
// the population grows. Ties get no special handling: two users with equal
// XP may hold different ranks until the next full rebuild.
func (s *LeaderboardService) UpdateUserRank(ctx context.Context, userID uuid.UUID) (*leaderboard.Entry, error) {
	entry := &leaderboard.Entry{UserID: userID}

	query := `SELECT username, image_url, total_xp FROM users WHERE id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&entry.Username, &entry.ImageURL, &entry.TotalXP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to read user for ranking: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT COUNT(*) + 1 FROM users WHERE total_xp > $1`, entry.TotalXP).Scan(&entry.Rank)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rank: %w", err)
	}

	upsert := `
	INSERT INTO leaderboard (user_id, username, image_url, total_xp, rank, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id)
	DO UPDATE SET username = $2, image_url = $3, total_xp = $4, rank = $5, updated_at = NOW()
	`

	_, err = s.db.Exec(ctx, upsert, entry.UserID, entry.Username, entry.ImageURL, entry.TotalXP, entry.Rank)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert leaderboard entry: %w", err)
	}

	entry.Medal = MedalForRank(entry.Rank)
	return entry, nil
}

// GetLeaderboard reads a page of cached entries ordered by rank.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, page, limit int) (*leaderboard.Page, error) {
	page, limit = normalizePaging(page, limit)

	query := `
	SELECT user_id, username, image_url, total_xp, rank, updated_at
	FROM leaderboard
	ORDER BY rank ASC
	LIMIT $1 OFFSET $2
	`

	rows, err := s.db.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		e := &leaderboard.Entry{}
		err := rows.Scan(&e.UserID, &e.Username, &e.ImageURL, &e.TotalXP, &e.Rank, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Medal = MedalForRank(e.Rank)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count leaderboard: %w", err)
	}

	if entries == nil {
		entries = []*leaderboard.Entry{}
	}

	return &leaderboard.Page{
		Entries:    entries,
		Page:       page,
		Limit:      limit,
		TotalUsers: total,
	}, nil
}

// GetUserLeaderboardPosition reads the cached entry, computing it on demand
// when the cache has no row for the user yet.
func (s *LeaderboardService) GetUserLeaderboardPosition(ctx context.Context, userID uuid.UUID) (*leaderboard.Entry, error) {
	query := `
	SELECT user_id, username, image_url, total_xp, rank, updated_at
	FROM leaderboard
	WHERE user_id = $1
	`

	e := &leaderboard.Entry{}
	err := s.db.QueryRow(ctx, query, userID).Scan(&e.UserID, &e.Username, &e.ImageURL, &e.TotalXP, &e.Rank, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("GetUserLeaderboardPosition: cold entry for %s, computing", userID)
			return s.UpdateUserRank(ctx, userID)
		}
		return nil, fmt.Errorf("failed to read leaderboard position: %w", err)
	}

	e.Medal = MedalForRank(e.Rank)
	return e, nil
}

// Rebuild drops the cache and reinserts every user ordered by XP with dense
// ranks. This is the authority that corrects drift left behind by the
// incremental per-user updates.
func (s *LeaderboardService) Rebuild(ctx context.Context) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin leaderboard rebuild: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT id, username, image_url, total_xp FROM users ORDER BY total_xp DESC, id ASC`)
	if err != nil {
		return 0, fmt.Errorf("failed to read users for rebuild: %w", err)
	}

	type rebuildRow struct {
		userID   uuid.UUID
		username string
		imageURL *string
		totalXP  int
	}

	var users []rebuildRow
	for rows.Next() {
		var r rebuildRow
		if err := rows.Scan(&r.userID, &r.username, &r.imageURL, &r.totalXP); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan user for rebuild: %w", err)
		}
		users = append(users, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating users for rebuild: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard`); err != nil {
		return 0, fmt.Errorf("failed to clear leaderboard: %w", err)
	}

	insert := `
	INSERT INTO leaderboard (user_id, username, image_url, total_xp, rank, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	`
	for i, u := range users {
		if _, err := tx.Exec(ctx, insert, u.userID, u.username, u.imageURL, u.totalXP, i+1); err != nil {
			return 0, fmt.Errorf("failed to insert rebuilt entry for %s: %w", u.userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit leaderboard rebuild: %w", err)
	}

	return len(users), nil
}

// MedalForRank marks the podium; everyone else gets no medal.
func MedalForRank(rank int) string {
	switch rank {
	case 1:
		return "gold"
	case 2:
		return "silver"
	case 3:
		return "bronze"
	default:
		return ""
	}
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
