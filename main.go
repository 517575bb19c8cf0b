package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sweatSquadAPI/handlers"
	"sweatSquadAPI/internal/notification"
	"sweatSquadAPI/internal/types/challenge"
	"sweatSquadAPI/middleware"
	"sweatSquadAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	notificationService *services.NotificationService
	leaderboardService  *services.LeaderboardService
	progressionService  *services.ProgressionService
	badgeService        *services.BadgeService
	streakService       *services.StreakService
	challengeService    *services.ChallengeService
	activityService     *services.ActivityService
	scheduler           *services.Scheduler
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	// Construction order follows the reward cascade: notifications and the
	// leaderboard have no service deps, progression needs both, badges need
	// progression, streaks need badges, challenges need badges, the activity
	// orchestrator needs everything.
	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	leaderboardService = services.NewLeaderboardService(dbPool)
	progressionService = services.NewProgressionService(dbPool, leaderboardService, notificationService)
	badgeService = services.NewBadgeService(dbPool, progressionService, notificationService)
	streakService = services.NewStreakService(dbPool, progressionService, badgeService)
	challengeService = services.NewChallengeService(dbPool, progressionService, badgeService, notificationService)
	activityService = services.NewActivityService(dbPool, progressionService, streakService, badgeService, challengeService)

	scheduler, err = services.NewScheduler(streakService, challengeService, leaderboardService)
	if err != nil {
		log.Fatal("Failed to create scheduler:", err)
	}

	if err := badgeService.SeedDefaultBadges(ctx); err != nil {
		log.Printf("Warning: badge seeding failed: %v", err)
	}

	// Make sure the current windows have definitions even when the process
	// starts mid-cycle; the cron jobs take over from here.
	for _, ctype := range []challenge.ChallengeType{challenge.TypeDaily, challenge.TypeWeekly, challenge.TypeMonthly} {
		if err := challengeService.EnsureRecurringChallenges(ctx, ctype); err != nil {
			log.Printf("Warning: %s challenge provisioning failed: %v", ctype, err)
		}
	}

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	activityHandler := handlers.NewActivityHandler(activityService, userService)
	progressionHandler := handlers.NewProgressionHandler(progressionService, streakService, userService)
	badgeHandler := handlers.NewBadgeHandler(badgeService, userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, userService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, userService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "sweatSquad-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/activities/complete", activityHandler.CompleteActivity).Methods("POST")
	protected.HandleFunc("/activities/create", activityHandler.CreateActivity).Methods("POST")
	protected.HandleFunc("/connections", activityHandler.RecordConnection).Methods("POST")

	protected.HandleFunc("/progression", progressionHandler.GetProgression).Methods("GET")
	protected.HandleFunc("/progression/level", progressionHandler.GetLevelInfo).Methods("GET")
	protected.HandleFunc("/progression/levels", progressionHandler.GetLevelTable).Methods("GET")
	protected.HandleFunc("/streaks", progressionHandler.GetStreak).Methods("GET")

	protected.HandleFunc("/badges", badgeHandler.GetBadges).Methods("GET")
	protected.HandleFunc("/badges/progress", badgeHandler.GetBadgeProgress).Methods("GET")

	protected.HandleFunc("/challenges", challengeHandler.GetActiveChallenges).Methods("GET")
	protected.HandleFunc("/challenges/activate", challengeHandler.ActivateChallenges).Methods("POST")

	protected.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/leaderboard/me", leaderboardHandler.GetMyPosition).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	scheduler.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	notificationService.Stop()

	log.Println("Server shutdown complete")
}
