package services

import (
	"context"
	"errors"
	"testing"

	"sweatSquadAPI/internal/types/activity"
	"sweatSquadAPI/internal/types/badge"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAggregates answers criteria questions from fixed values. byType maps
// activity types to per-sport counts/totals; the zero key holds the all-sport
// aggregate.
type fakeAggregates struct {
	activityCount map[string]int
	distanceKm    map[string]float64
	durationMin   map[string]int
	creations     int
	streak        int
	err           error
}

func (f *fakeAggregates) ActivityCount(_ context.Context, activityType string) (int, error) {
	return f.activityCount[activityType], f.err
}

func (f *fakeAggregates) DistanceTotal(_ context.Context, activityType string) (float64, error) {
	return f.distanceKm[activityType], f.err
}

func (f *fakeAggregates) DurationTotal(_ context.Context, activityType string) (int, error) {
	return f.durationMin[activityType], f.err
}

func (f *fakeAggregates) CreationCount(_ context.Context) (int, error) {
	return f.creations, f.err
}

func (f *fakeAggregates) CurrentStreak(_ context.Context) (int, error) {
	return f.streak, f.err
}

func TestCriterionMetActivityCount(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{activityCount: map[string]int{"": 10, "running": 3}}

	met, err := s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaActivityCount, Count: 10})
	require.NoError(t, err)
	assert.True(t, met)

	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaActivityCount, Count: 11})
	require.NoError(t, err)
	assert.False(t, met)

	// Sport-scoped counts only see that sport.
	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaActivityCount, ActivityType: "running", Count: 5})
	require.NoError(t, err)
	assert.False(t, met)
}

func TestCriterionMetTotals(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{
		distanceKm:  map[string]float64{"": 42.3},
		durationMin: map[string]int{"": 600},
		streak:      7,
	}

	met, err := s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaDistanceTotal, Km: 42.0})
	require.NoError(t, err)
	assert.True(t, met)

	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaDistanceTotal, Km: 50})
	require.NoError(t, err)
	assert.False(t, met)

	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaDurationTotal, Minutes: 600})
	require.NoError(t, err)
	assert.True(t, met)

	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaStreakDays, Days: 7})
	require.NoError(t, err)
	assert.True(t, met)

	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaStreakDays, Days: 8})
	require.NoError(t, err)
	assert.False(t, met)
}

func TestCriterionMetCreationAliases(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{creations: 5}

	// host_events and activity_creation_count read the same aggregate.
	for _, ct := range []badge.CriteriaType{badge.CriteriaActivityCreationCount, badge.CriteriaHostEvents} {
		met, err := s.criterionMet(context.Background(), agg, badge.Criteria{Type: ct, Count: 5})
		require.NoError(t, err)
		assert.True(t, met, string(ct))
	}
}

func TestCriterionMetUnknownType(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{activityCount: map[string]int{"": 1000}}

	met, err := s.criterionMet(context.Background(), agg, badge.Criteria{Type: "moon_landings", Count: 1})
	require.NoError(t, err)
	assert.False(t, met)
}

func TestCriterionMetSocialConnectionsNotWired(t *testing.T) {
	s := &BadgeService{}
	met, err := s.criterionMet(context.Background(), &fakeAggregates{}, badge.Criteria{Type: badge.CriteriaSocialConnections, Count: 1})
	require.NoError(t, err)
	assert.False(t, met)
}

func TestCriterionMetCombined(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{
		activityCount: map[string]int{"": 10},
		streak:        3,
	}

	both := badge.Criteria{
		Type: badge.CriteriaCombined,
		Criteria: []badge.Criteria{
			{Type: badge.CriteriaActivityCount, Count: 10},
			{Type: badge.CriteriaStreakDays, Days: 3},
		},
	}
	met, err := s.criterionMet(context.Background(), agg, both)
	require.NoError(t, err)
	assert.True(t, met)

	// One unmet member sinks the whole conjunction.
	both.Criteria[1].Days = 4
	met, err = s.criterionMet(context.Background(), agg, both)
	require.NoError(t, err)
	assert.False(t, met)

	// An empty conjunction is never met.
	met, err = s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaCombined})
	require.NoError(t, err)
	assert.False(t, met)
}

func TestCriterionMetAggregateError(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{err: errors.New("db down")}

	_, err := s.criterionMet(context.Background(), agg, badge.Criteria{Type: badge.CriteriaActivityCount, Count: 1})
	assert.Error(t, err)
}

func TestRelevantCriteria(t *testing.T) {
	created := relevantCriteria(activity.TriggerActivityCreated)
	assert.True(t, created[badge.CriteriaActivityCreationCount])
	assert.True(t, created[badge.CriteriaHostEvents])
	assert.False(t, created[badge.CriteriaActivityCount])

	complete := relevantCriteria(activity.TriggerActivityComplete)
	assert.True(t, complete[badge.CriteriaActivityCount])
	assert.True(t, complete[badge.CriteriaDistanceTotal])
	assert.True(t, complete[badge.CriteriaStreakDays])
	assert.False(t, complete[badge.CriteriaActivityCreationCount])

	// Other triggers consider everything.
	assert.Nil(t, relevantCriteria(activity.TriggerStreakUpdated))
}

func TestBadgeXPReward(t *testing.T) {
	assert.Equal(t, 100, BadgeXPReward(100, badge.RarityCommon))
	assert.Equal(t, 150, BadgeXPReward(100, badge.RarityUncommon))
	assert.Equal(t, 200, BadgeXPReward(100, badge.RarityRare))
	assert.Equal(t, 300, BadgeXPReward(100, badge.RarityEpic))
	assert.Equal(t, 500, BadgeXPReward(100, badge.RarityLegendary))

	// Unknown rarity falls back to the common multiplier.
	assert.Equal(t, 100, BadgeXPReward(100, badge.Rarity("mythic")))

	// Fractional products round to nearest.
	assert.Equal(t, 38, BadgeXPReward(25, badge.RarityUncommon))
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0, progressPercentage(0, 10))
	assert.Equal(t, 50, progressPercentage(5, 10))
	assert.Equal(t, 100, progressPercentage(10, 10))
	assert.Equal(t, 100, progressPercentage(25, 10))
	assert.Equal(t, 100, progressPercentage(3, 0))
	assert.Equal(t, 33, progressPercentage(1, 3))
}

func TestAwardBadgeSecondAttemptPaysNoXP(t *testing.T) {
	fake := newFakeDB()
	// The grant insert lands on the first attempt and conflicts away on the
	// second.
	fake.execTags["INSERT INTO user_badges"] = []string{"INSERT 0 1", "INSERT 0 0"}
	fake.rowData["RETURNING total_xp, current_level"] = []any{100, 1}
	fake.rowData["username, image_url, total_xp"] = []any{"casey", nil, 100}
	fake.rowData["COUNT(*) + 1"] = []any{2}

	notifications := testNotificationService(fake)
	leaderboards := &LeaderboardService{db: fake}
	progression := &ProgressionService{db: fake, leaderboards: leaderboards, notifications: notifications}
	s := &BadgeService{db: fake, progression: progression, notifications: notifications}

	b := &badge.Badge{
		ID:       uuid.New(),
		Name:     "Regular",
		Rarity:   badge.RarityCommon,
		XPReward: 50,
		Criteria: badge.Criteria{Type: badge.CriteriaActivityCount, Count: 10},
	}
	userID := uuid.New()

	require.NoError(t, s.awardBadge(context.Background(), userID, b))
	assert.Equal(t, 1, fake.countSQL("GREATEST(0, total_xp"))
	assert.Equal(t, 1, fake.countSQL("INSERT INTO notifications"))

	// Second attempt: the grant insert is retried, everything downstream is
	// skipped — XP credited exactly once.
	require.NoError(t, s.awardBadge(context.Background(), userID, b))
	assert.Equal(t, 2, fake.countSQL("INSERT INTO user_badges"))
	assert.Equal(t, 1, fake.countSQL("GREATEST(0, total_xp"))
	assert.Equal(t, 1, fake.countSQL("INSERT INTO notifications"))
}

func TestCriterionProgressCombinedReportsLeastComplete(t *testing.T) {
	s := &BadgeService{}
	agg := &fakeAggregates{
		activityCount: map[string]int{"": 9},
		streak:        1,
	}

	current, target, err := s.criterionProgress(context.Background(), agg, badge.Criteria{
		Type: badge.CriteriaCombined,
		Criteria: []badge.Criteria{
			{Type: badge.CriteriaActivityCount, Count: 10}, // 90%
			{Type: badge.CriteriaStreakDays, Days: 5},      // 20%
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, current)
	assert.Equal(t, 5.0, target)
}
