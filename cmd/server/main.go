package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/Hiksang/rewardguard-backend/internal/config"
	"github.com/Hiksang/rewardguard-backend/internal/database"
	"github.com/Hiksang/rewardguard-backend/internal/handlers"
	"github.com/Hiksang/rewardguard-backend/internal/middleware"
	"github.com/Hiksang/rewardguard-backend/internal/routes"
	"github.com/Hiksang/rewardguard-backend/internal/services"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Engine state backend: Redis when configured (multi-instance, state
	// survives restarts), in-memory otherwise (single instance, volatile).
	var engineStore store.Store
	var memStore *store.MemoryStore
	if cfg.RedisURI != "" {
		log.Printf("Connecting to Redis...")
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer database.DisconnectRedis()
		engineStore = store.NewRedisStore(database.RedisClient)
	} else {
		log.Println("⚠️  REDIS_URI not set. Using in-memory state (single instance; lost on restart).")
		memStore = store.NewMemoryStore()
		memStore.StartSweeper(cfg.SweepInterval)
		defer memStore.StopSweeper()
		engineStore = memStore
	}

	// External XP ledger (optional).
	ledgerEnabled := false
	if cfg.PostgresURI != "" {
		log.Printf("Connecting to PostgreSQL...")
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL: %v", err)
			log.Println("XP crediting will not be available")
		} else {
			ledgerEnabled = true
			defer database.DisconnectPostgres()
		}
	} else {
		log.Println("Warning: POSTGRES_URI not set. XP crediting will not be available")
	}

	// Audit trail (optional).
	auditStop := make(chan struct{})
	defer close(auditStop)
	if cfg.MongoURI != "" {
		log.Printf("Connecting to MongoDB...")
		if err := database.Connect(cfg.MongoURI); err != nil {
			log.Printf("Warning: Failed to connect to MongoDB: %v", err)
			log.Println("Audit trail will not be available")
		} else {
			defer database.Disconnect()
			services.StartViolationCleanup(time.Hour, cfg.AuditMaxAge, auditStop)
			log.Println("✅ Audit cleanup started")
		}
	} else {
		log.Println("Warning: MONGODB_URI not set. Audit trail will not be available")
	}

	quotaLoc, err := time.LoadLocation(cfg.QuotaTimezone)
	if err != nil {
		log.Printf("⚠️  WARNING: invalid QUOTA_TIMEZONE %q, falling back to UTC", cfg.QuotaTimezone)
		quotaLoc = time.UTC
	}

	// Engine services.
	behavior := services.NewBehaviorAnalyzer(engineStore, services.BehaviorConfig{
		MaxEvents:            cfg.MaxBehaviorEvents,
		MinEventsForAnalysis: cfg.MinEventsForAnalysis,
		VeryLowCoV:           cfg.VeryLowCoV,
		LowCoV:               cfg.LowCoV,
		ModerateCoV:          cfg.ModerateCoV,
		MinViewSeconds:       cfg.MinViewSeconds,
		FastViewShare:        cfg.FastViewShare,
		MaxViewsPerMinute:    cfg.MaxViewsPerMinute,
		ChallengeScore:       cfg.ChallengeScore,
		ReverifyScore:        cfg.ReverifyScore,
		BlockScore:           cfg.BlockScore,
	})
	challenges := services.NewChallengeEngine(engineStore, services.ChallengeConfig{
		ViewsPerChallenge: cfg.ViewsPerChallenge,
		Timeout:           cfg.ChallengeTimeout,
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		LockoutDuration:   cfg.LockoutDuration,
	})
	reverify := services.NewReVerificationCoordinator(engineStore, cfg.ReverifyExpiry)

	handlers.Init(handlers.Deps{
		Cfg:           cfg,
		Limiter:       services.NewRateLimiter(engineStore),
		Quota:         services.NewDailyQuotaTracker(engineStore, quotaLoc, cfg.MaxXPPerDay, cfg.MaxAdViewsPerDay, cfg.MaxQuizPerDay),
		Sessions:      services.NewSessionLedger(engineStore, cfg.SessionTTL, cfg.CooldownDuration, cfg.MinWatchFraction),
		Behavior:      behavior,
		Challenges:    challenges,
		Reverify:      reverify,
		Guard:         services.NewGuard(engineStore, behavior, challenges, reverify),
		Oracle:        services.NewIdentityOracle(cfg.OracleURL),
		AdminSessions: services.NewAdminSessions(engineStore),
		LedgerEnabled: ledgerEnabled,
	})
	if cfg.OracleURL == "" {
		log.Println("Warning: ORACLE_URL not set. Re-verification cannot be completed")
	}
	if cfg.AdminPasswordHash == "" {
		log.Println("⚠️  WARNING: ADMIN_PASSWORD_HASH not set. Admin endpoints are disabled.")
	}

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.IPRateLimit)
		log.Println("✅ Production security enabled (security headers, per-IP backstop)")
	}

	// Health check (no gating)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Rewardguard backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown: stop accepting, drain in-flight requests, then let
	// the deferred disconnects and sweeper stops run.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
