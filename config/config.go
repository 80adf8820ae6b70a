package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pg-backend/utils"
)

type Config struct {
	AppName     string
	Port        string
	CorsOrigins []string
	RedisAddr   string

	OutboxCron        string
	OutboxMaxAttempts int
	OutboxBaseBackoff time.Duration
	OutboxMaxBackoff  time.Duration
	OutboxBatchSize   int
	OutboxLockTTL     time.Duration

	DefaultCurrency string
	PhoneRegion     string
	SeedDemoData    bool
}

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logg.Debug(".env not found; using process environment")
	}

	return Config{
		AppName:     utils.EnvOrDefault("APP_NAME", "pg-backend"),
		Port:        utils.EnvOrDefault("PORT", "8080"),
		CorsOrigins: parseCorsOrigins(utils.EnvOrDefault("CORS_ORIGINS", "")),
		RedisAddr:   utils.EnvOrDefault("REDIS_ADDR", ""),

		OutboxCron:        utils.EnvOrDefault("OUTBOX_CRON", "@every 30s"),
		OutboxMaxAttempts: utils.EnvIntOrDefault("OUTBOX_MAX_ATTEMPTS", 10),
		OutboxBaseBackoff: time.Duration(utils.EnvIntOrDefault("OUTBOX_BASE_BACKOFF_SECONDS", 5)) * time.Second,
		OutboxMaxBackoff:  time.Duration(utils.EnvIntOrDefault("OUTBOX_MAX_BACKOFF_SECONDS", 600)) * time.Second,
		OutboxBatchSize:   utils.EnvIntOrDefault("OUTBOX_BATCH_SIZE", 50),
		OutboxLockTTL:     time.Duration(utils.EnvIntOrDefault("OUTBOX_LOCK_TTL_SECONDS", 120)) * time.Second,

		DefaultCurrency: strings.ToUpper(utils.EnvOrDefault("DEFAULT_CURRENCY", "INR")),
		PhoneRegion:     strings.ToUpper(utils.EnvOrDefault("PHONE_REGION", "IN")),
		SeedDemoData:    utils.EnvBool("SEED_DEMO_DATA", false),
	}
}

func parseCorsOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
