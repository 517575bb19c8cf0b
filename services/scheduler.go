package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"sweatSquadAPI/internal/types/challenge"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler owns the recurring maintenance jobs: expiring overdue challenges
// and broken streaks, rolling recurring challenge definitions and rebuilding
// the leaderboard.
type Scheduler struct {
	sched        gocron.Scheduler
	streaks      *StreakService
	challenges   *ChallengeService
	leaderboards *LeaderboardService
}

func NewScheduler(streaks *StreakService, challenges *ChallengeService, leaderboards *LeaderboardService) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		sched:        sched,
		streaks:      streaks,
		challenges:   challenges,
		leaderboards: leaderboards,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	// Hourly: expire overdue challenge instances and true up the leaderboard.
	_, err := s.sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(s.hourlyMaintenance),
	)
	if err != nil {
		return fmt.Errorf("failed to register hourly job: %w", err)
	}

	// Daily at midnight: break stale streaks, roll daily challenges.
	_, err = s.sched.NewJob(
		gocron.CronJob("0 0 * * *", false),
		gocron.NewTask(s.dailyRollover),
	)
	if err != nil {
		return fmt.Errorf("failed to register daily job: %w", err)
	}

	// Weekly on Sunday midnight: roll weekly challenges.
	_, err = s.sched.NewJob(
		gocron.CronJob("0 0 * * 0", false),
		gocron.NewTask(s.rolloverChallenges, challenge.TypeWeekly),
	)
	if err != nil {
		return fmt.Errorf("failed to register weekly job: %w", err)
	}

	// Monthly on the 1st: roll monthly challenges.
	_, err = s.sched.NewJob(
		gocron.CronJob("0 0 1 * *", false),
		gocron.NewTask(s.rolloverChallenges, challenge.TypeMonthly),
	)
	if err != nil {
		return fmt.Errorf("failed to register monthly job: %w", err)
	}

	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.Println("Scheduler started")
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) hourlyMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := s.challenges.ExpireOverdueChallenges(ctx)
	if err != nil {
		log.Printf("Scheduler: challenge expiry failed: %v", err)
	} else if expired > 0 {
		log.Printf("Scheduler: expired %d overdue challenges", expired)
	}

	count, err := s.leaderboards.Rebuild(ctx)
	if err != nil {
		log.Printf("Scheduler: leaderboard rebuild failed: %v", err)
	} else {
		log.Printf("Scheduler: leaderboard rebuilt with %d users", count)
	}
}

func (s *Scheduler) dailyRollover() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	broken, err := s.streaks.ExpireBrokenStreaks(ctx)
	if err != nil {
		log.Printf("Scheduler: streak expiry failed: %v", err)
	} else if broken > 0 {
		log.Printf("Scheduler: reset %d broken streaks", broken)
	}

	s.rolloverChallenges(challenge.TypeDaily)
}

func (s *Scheduler) rolloverChallenges(ctype challenge.ChallengeType) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.challenges.EnsureRecurringChallenges(ctx, ctype); err != nil {
		log.Printf("Scheduler: %s challenge rollover failed: %v", ctype, err)
		return
	}
	if err := s.challenges.ActivateChallengesForAllUsers(ctx); err != nil {
		log.Printf("Scheduler: %s challenge activation failed: %v", ctype, err)
	}
}
