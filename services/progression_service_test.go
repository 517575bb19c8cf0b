package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddXPUsesRelativeUpdate(t *testing.T) {
	fake := newFakeDB()
	fake.rowData["RETURNING total_xp, current_level"] = []any{150, 1}
	fake.rowData["username, image_url, total_xp"] = []any{"casey", nil, 150}
	fake.rowData["COUNT(*) + 1"] = []any{1}

	notifications := testNotificationService(fake)
	s := &ProgressionService{db: fake, leaderboards: &LeaderboardService{db: fake}, notifications: notifications}

	info, err := s.AddXP(context.Background(), uuid.New(), 50, "activity_complete")
	require.NoError(t, err)

	// The write is an in-database increment, never a read-modify-write of an
	// absolute total.
	assert.Equal(t, 1, fake.countSQL("GREATEST(0, total_xp + $2)"))

	// 150 XP crosses into level 2: level write plus level-up notification.
	assert.Equal(t, 150, info.TotalXP)
	assert.Equal(t, 2, info.Level)
	assert.Equal(t, 1, fake.countSQL("SET current_level"))
	assert.Equal(t, 1, fake.countSQL("INSERT INTO notifications"))
}

func TestAddXPMissingUser(t *testing.T) {
	fake := newFakeDB()
	s := &ProgressionService{db: fake}

	_, err := s.AddXP(context.Background(), uuid.New(), 10, "activity_complete")
	assert.EqualError(t, err, "user not found")
}
