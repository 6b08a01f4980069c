package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string // ENV: production, development, etc.
	AllowedOrigins []string

	// External services. All optional: the engine degrades to in-memory
	// state, no audit trail and no ledger crediting when unset.
	RedisURI    string
	PostgresURI string
	MongoURI    string
	OracleURL   string // identity verification oracle base URL

	// Admin surface.
	AdminUsername     string
	AdminPasswordHash string // argon2id hash, pkg/utils format

	// Rate limiter (fixed windows).
	StartLimitPerIdentity    int
	StartLimitPerIP          int
	CompleteLimitPerIdentity int
	RateLimitWindow          time.Duration

	// Daily quota ceilings.
	MaxXPPerDay      int
	MaxAdViewsPerDay int
	MaxQuizPerDay    int
	QuotaTimezone    string // IANA zone for day rollover, default UTC

	// Session ledger.
	SessionTTL       time.Duration
	CooldownDuration time.Duration
	MinWatchFraction float64

	// Behavior analyzer.
	MaxBehaviorEvents    int
	MinEventsForAnalysis int
	VeryLowCoV           float64
	LowCoV               float64
	ModerateCoV          float64
	MinViewSeconds       float64
	FastViewShare        float64
	MaxViewsPerMinute    float64

	// Suspicion band boundaries (allow < challenge < reverify < block).
	ChallengeScore int
	ReverifyScore  int
	BlockScore     int

	// Challenge engine.
	ViewsPerChallenge int
	ChallengeTimeout  time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration

	// Re-verification.
	ReverifyExpiry time.Duration

	// Background hygiene.
	SweepInterval time.Duration
	AuditMaxAge   time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:3000")}
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		AllowedOrigins: allowedOrigins,

		RedisURI:    getEnv("REDIS_URI", ""),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		MongoURI:    getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		OracleURL:   getEnv("ORACLE_URL", ""),

		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		StartLimitPerIdentity:    getEnvInt("START_LIMIT_PER_IDENTITY", 5),
		StartLimitPerIP:          getEnvInt("START_LIMIT_PER_IP", 10),
		CompleteLimitPerIdentity: getEnvInt("COMPLETE_LIMIT_PER_IDENTITY", 100),
		RateLimitWindow:          getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		MaxXPPerDay:      getEnvInt("MAX_XP_PER_DAY", 500),
		MaxAdViewsPerDay: getEnvInt("MAX_AD_VIEWS_PER_DAY", 50),
		MaxQuizPerDay:    getEnvInt("MAX_QUIZ_ANSWERS_PER_DAY", 20),
		QuotaTimezone:    getEnv("QUOTA_TIMEZONE", "UTC"),

		SessionTTL:       getEnvDuration("SESSION_TTL", 10*time.Minute),
		CooldownDuration: getEnvDuration("COOLDOWN_DURATION", 60*time.Second),
		MinWatchFraction: getEnvFloat("MIN_WATCH_FRACTION", 0.8),

		MaxBehaviorEvents:    getEnvInt("MAX_BEHAVIOR_EVENTS", 50),
		MinEventsForAnalysis: getEnvInt("MIN_EVENTS_FOR_ANALYSIS", 3),
		VeryLowCoV:           getEnvFloat("VERY_LOW_COV", 0.05),
		LowCoV:               getEnvFloat("LOW_COV", 0.1),
		ModerateCoV:          getEnvFloat("MODERATE_COV", 0.5),
		MinViewSeconds:       getEnvFloat("MIN_VIEW_SECONDS", 3),
		FastViewShare:        getEnvFloat("FAST_VIEW_SHARE", 0.3),
		MaxViewsPerMinute:    getEnvFloat("MAX_VIEWS_PER_MINUTE", 4),

		ChallengeScore: getEnvInt("CHALLENGE_SCORE", 50),
		ReverifyScore:  getEnvInt("REVERIFY_SCORE", 70),
		BlockScore:     getEnvInt("BLOCK_SCORE", 90),

		ViewsPerChallenge: getEnvInt("VIEWS_PER_CHALLENGE", 5),
		ChallengeTimeout:  getEnvDuration("CHALLENGE_TIMEOUT", 2*time.Minute),
		MaxFailedAttempts: getEnvInt("MAX_FAILED_ATTEMPTS", 3),
		LockoutDuration:   getEnvDuration("LOCKOUT_DURATION", 5*time.Minute),

		ReverifyExpiry: getEnvDuration("REVERIFY_EXPIRY", 24*time.Hour),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
		AuditMaxAge:   getEnvDuration("AUDIT_MAX_AGE", 30*24*time.Hour),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
