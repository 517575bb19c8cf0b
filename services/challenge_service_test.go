package services

import (
	"context"
	"testing"
	"time"

	"sweatSquadAPI/internal/types/activity"
	"sweatSquadAPI/internal/types/challenge"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMostRecentSunday(t *testing.T) {
	// 2025-06-01 is a Sunday.
	sunday := day(2025, time.June, 1)

	assert.Equal(t, sunday, mostRecentSunday(sunday))
	assert.Equal(t, sunday, mostRecentSunday(day(2025, time.June, 2)))                            // Monday
	assert.Equal(t, sunday, mostRecentSunday(day(2025, time.June, 7)))                            // Saturday
	assert.Equal(t, sunday.AddDate(0, 0, 7), mostRecentSunday(day(2025, time.June, 8)))           // next Sunday
	assert.Equal(t, sunday, mostRecentSunday(time.Date(2025, time.June, 1, 23, 59, 0, 0, time.UTC)))
}

func TestInPeriodWindowDay(t *testing.T) {
	now := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)

	// The whole calendar day counts, edge to edge.
	assert.True(t, inPeriodWindow(challenge.PeriodDay, time.Date(2025, time.June, 3, 0, 0, 1, 0, time.UTC), now))
	assert.True(t, inPeriodWindow(challenge.PeriodDay, time.Date(2025, time.June, 3, 23, 59, 59, 0, time.UTC), now))

	// One second into the next day does not.
	assert.False(t, inPeriodWindow(challenge.PeriodDay, time.Date(2025, time.June, 4, 0, 0, 1, 0, time.UTC), now))
	assert.False(t, inPeriodWindow(challenge.PeriodDay, time.Date(2025, time.June, 2, 23, 59, 59, 0, time.UTC), now))
}

func TestInPeriodWindowWeek(t *testing.T) {
	// Wednesday; the week runs Sunday June 1 through Saturday June 7.
	now := time.Date(2025, time.June, 4, 12, 0, 0, 0, time.UTC)

	assert.True(t, inPeriodWindow(challenge.PeriodWeek, day(2025, time.June, 1), now))
	assert.True(t, inPeriodWindow(challenge.PeriodWeek, time.Date(2025, time.June, 7, 23, 0, 0, 0, time.UTC), now))
	assert.False(t, inPeriodWindow(challenge.PeriodWeek, time.Date(2025, time.May, 31, 23, 0, 0, 0, time.UTC), now))
	assert.False(t, inPeriodWindow(challenge.PeriodWeek, day(2025, time.June, 8), now))
}

func TestInPeriodWindowWeekend(t *testing.T) {
	// Saturday June 7; the Sunday-started week holds Sunday June 1 and
	// Saturday June 7 as its weekend days.
	now := time.Date(2025, time.June, 7, 10, 0, 0, 0, time.UTC)

	assert.True(t, inPeriodWindow(challenge.PeriodWeekend, now, now))
	assert.True(t, inPeriodWindow(challenge.PeriodWeekend, day(2025, time.June, 1), now))

	// A weekday never qualifies regardless of the week.
	assert.False(t, inPeriodWindow(challenge.PeriodWeekend, day(2025, time.June, 4), now))

	// A Saturday from another week does not qualify.
	assert.False(t, inPeriodWindow(challenge.PeriodWeekend, day(2025, time.May, 31), now))
}

func TestInPeriodWindowMonth(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, inPeriodWindow(challenge.PeriodMonth, day(2025, time.June, 1), now))
	assert.True(t, inPeriodWindow(challenge.PeriodMonth, day(2025, time.June, 30), now))
	assert.False(t, inPeriodWindow(challenge.PeriodMonth, day(2025, time.May, 31), now))
	assert.False(t, inPeriodWindow(challenge.PeriodMonth, day(2024, time.June, 15), now))
}

func TestInPeriodWindowAny(t *testing.T) {
	now := time.Now()
	assert.True(t, inPeriodWindow(challenge.PeriodAny, now.AddDate(-1, 0, 0), now))
	assert.True(t, inPeriodWindow(challenge.Period(""), now.AddDate(-1, 0, 0), now))
	assert.False(t, inPeriodWindow(challenge.Period("fortnight"), now, now))
}

func TestProgressIncrementCounts(t *testing.T) {
	now := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)
	actx := activity.ActionContext{ActivityType: "running", DistanceKm: 5.4, DurationMinutes: 32, CompletedAt: &now}

	inc := progressIncrement(challenge.Criteria{Metric: challenge.MetricActivityCount}, activity.TriggerActivityComplete, actx, now)
	assert.Equal(t, 1, inc)

	inc = progressIncrement(challenge.Criteria{Metric: challenge.MetricDistanceTotal}, activity.TriggerActivityComplete, actx, now)
	assert.Equal(t, 5, inc)

	inc = progressIncrement(challenge.Criteria{Metric: challenge.MetricDurationTotal}, activity.TriggerActivityComplete, actx, now)
	assert.Equal(t, 32, inc)
}

func TestProgressIncrementPeriodGating(t *testing.T) {
	now := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	today := activity.ActionContext{DurationMinutes: 30, CompletedAt: &now}
	stale := activity.ActionContext{DurationMinutes: 30, CompletedAt: &yesterday}

	crit := challenge.Criteria{Metric: challenge.MetricActivitiesInPeriod, Period: challenge.PeriodDay}
	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerActivityComplete, today, now))
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, stale, now))

	crit = challenge.Criteria{Metric: challenge.MetricDurationInPeriod, Period: challenge.PeriodDay}
	assert.Equal(t, 30, progressIncrement(crit, activity.TriggerActivityComplete, today, now))
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, stale, now))
}

func TestProgressIncrementSportSpecific(t *testing.T) {
	now := time.Now()
	running := activity.ActionContext{ActivityType: "running", CompletedAt: &now}
	cycling := activity.ActionContext{ActivityType: "cycling", CompletedAt: &now}

	crit := challenge.Criteria{Metric: challenge.MetricSportSpecific, ActivityType: "running"}
	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerActivityComplete, running, now))
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, cycling, now))

	// Without a sport filter every activity matches.
	crit = challenge.Criteria{Metric: challenge.MetricSportSpecific}
	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerActivityComplete, cycling, now))
}

func TestProgressIncrementSportVariety(t *testing.T) {
	now := time.Now()
	actx := activity.ActionContext{ActivityType: "yoga", CompletedAt: &now}
	crit := challenge.Criteria{Metric: challenge.MetricSportVariety}

	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerActivityComplete, actx, now))
}

func TestProgressIncrementSocialConnections(t *testing.T) {
	now := time.Now()
	crit := challenge.Criteria{Metric: challenge.MetricSocialConnections}

	// Connections move only on connection triggers, and activities never
	// touch connection metrics.
	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerNewConnection, activity.ActionContext{}, now))
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, activity.ActionContext{}, now))

	count := challenge.Criteria{Metric: challenge.MetricActivityCount}
	assert.Equal(t, 0, progressIncrement(count, activity.TriggerNewConnection, activity.ActionContext{}, now))
}

func TestProgressIncrementUnknownMetric(t *testing.T) {
	now := time.Now()
	crit := challenge.Criteria{Metric: challenge.Metric("step_count")}
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, activity.ActionContext{}, now))
}

func TestProgressIncrementEffectiveDateFallback(t *testing.T) {
	now := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)

	// With no completion or scheduled timestamp the action lands "now" and
	// passes today's window.
	crit := challenge.Criteria{Metric: challenge.MetricActivitiesInPeriod, Period: challenge.PeriodDay}
	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerActivityComplete, activity.ActionContext{}, now))

	// A scheduled date outside the window gates it off.
	lastWeek := now.AddDate(0, 0, -7)
	scheduled := activity.ActionContext{ScheduledAt: &lastWeek}
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, scheduled, now))
}

func TestActivateChallengesForUserIdempotent(t *testing.T) {
	fake := newFakeDB()
	now := time.Now()
	fake.rowsData["FROM challenges"] = [][]any{{
		uuid.New(), "Daily Mover", "Complete an activity today", challenge.TypeDaily,
		now.Add(-time.Hour), now.Add(time.Hour), 1,
		[]byte(`{"metric":"activities_in_period","period":"day"}`), 20, nil, true, now,
	}}
	fake.execTags["INSERT INTO user_challenges"] = []string{"INSERT 0 1", "INSERT 0 0"}

	s := &ChallengeService{db: fake}
	userID := uuid.New()

	activated, err := s.ActivateChallengesForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, activated)

	// Re-activation retries the insert but the conflict makes it a no-op.
	activated, err = s.ActivateChallengesForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, activated)
	assert.Equal(t, 2, fake.countSQL("INSERT INTO user_challenges"))
}

func TestApplyProgressCompletesAtMostOnce(t *testing.T) {
	fake := newFakeDB()
	// Both bumps report the target reached, but only the first completion
	// update wins the status='active' guard.
	fake.rowData["RETURNING current_progress"] = []any{5}
	fake.execTags["SET status = 'completed'"] = []string{"UPDATE 1", "UPDATE 0"}
	fake.rowData["RETURNING total_xp, current_level"] = []any{400, 3}
	fake.rowData["username, image_url, total_xp"] = []any{"casey", nil, 400}
	fake.rowData["COUNT(*) + 1"] = []any{1}

	notifications := testNotificationService(fake)
	leaderboards := &LeaderboardService{db: fake}
	progression := &ProgressionService{db: fake, leaderboards: leaderboards, notifications: notifications}
	s := &ChallengeService{db: fake, progression: progression, notifications: notifications}

	inst := &challenge.UserChallenge{ID: uuid.New(), UserID: uuid.New(), TargetCount: 5, Status: challenge.StatusActive}
	def := &challenge.Challenge{ID: uuid.New(), Name: "Weekly Warrior", ChallengeType: challenge.TypeWeekly, XPReward: 100}

	require.NoError(t, s.applyProgress(context.Background(), inst, def, 1))
	assert.Equal(t, 1, fake.countSQL("GREATEST(0, total_xp"))
	assert.Equal(t, 1, fake.countSQL("INSERT INTO notifications"))

	require.NoError(t, s.applyProgress(context.Background(), inst, def, 1))
	assert.Equal(t, 1, fake.countSQL("GREATEST(0, total_xp"))
	assert.Equal(t, 1, fake.countSQL("INSERT INTO notifications"))
}

func TestProgressIncrementShortDistanceRounds(t *testing.T) {
	now := time.Now()
	crit := challenge.Criteria{Metric: challenge.MetricDistanceTotal}

	// Distance progress is whole km: sub-half-km activities contribute
	// nothing, anything at or past the half rounds up.
	short := activity.ActionContext{DistanceKm: 0.4, CompletedAt: &now}
	assert.Equal(t, 0, progressIncrement(crit, activity.TriggerActivityComplete, short, now))

	longer := activity.ActionContext{DistanceKm: 0.6, CompletedAt: &now}
	assert.Equal(t, 1, progressIncrement(crit, activity.TriggerActivityComplete, longer, now))
}

func TestRecurringDefinitions(t *testing.T) {
	// Wednesday June 4 2025.
	now := time.Date(2025, time.June, 4, 15, 30, 0, 0, time.UTC)

	daily := recurringDefinitions(challenge.TypeDaily, now)
	require.NotEmpty(t, daily)
	for _, def := range daily {
		assert.Equal(t, challenge.TypeDaily, def.ChallengeType)
		assert.Equal(t, day(2025, time.June, 4), def.StartDate)
		assert.True(t, def.EndDate.Before(day(2025, time.June, 5)))
		assert.Greater(t, def.XPReward, 0)
		assert.Greater(t, def.TargetCount, 0)
	}

	weekly := recurringDefinitions(challenge.TypeWeekly, now)
	require.NotEmpty(t, weekly)
	for _, def := range weekly {
		assert.Equal(t, day(2025, time.June, 1), def.StartDate) // Sunday
		assert.True(t, def.EndDate.Before(day(2025, time.June, 8)))
	}

	monthly := recurringDefinitions(challenge.TypeMonthly, now)
	require.NotEmpty(t, monthly)
	for _, def := range monthly {
		assert.Equal(t, day(2025, time.June, 1), def.StartDate)
		assert.True(t, def.EndDate.Before(day(2025, time.July, 1)))
	}

	// Limited-time challenges are hand-seeded, never generated.
	assert.Empty(t, recurringDefinitions(challenge.TypeLimitedTime, now))
}
