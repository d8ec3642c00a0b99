package config

import (
	"errors"
	"strings"
	"time"

	platformconfig "github.com/example/content-platform/internal/platform/config"
)

// Config holds comments-service settings on top of the platform AppConfig.
type Config struct {
	DatabaseURL    string
	IsProduction   bool
	CursorSecret   string
	JWTSecret      string
	GRPCAddr       string
	RedisURL       string
	NATSURL        string
	CacheTTL       time.Duration
	MaxThreadDepth int
	MigrateOnStart bool
	IdempotencyTTL time.Duration

	// Circuit-breaker settings for entity resolution.
	CBMaxRequests      uint32
	CBInterval         time.Duration
	CBTimeout          time.Duration
	CBFailureThreshold uint32

	// Per-client limit on write requests; a zero rate disables it.
	WriteRatePerSec   int
	WriteBurst        int
	TrustForwardedFor bool
}

func Load(app platformconfig.AppConfig) (Config, error) {
	cfg := Config{
		DatabaseURL:        platformconfig.EnvString("DATABASE_URL", ""),
		IsProduction:       app.IsProduction(),
		CursorSecret:       platformconfig.EnvString("CURSOR_SECRET", ""),
		JWTSecret:          platformconfig.EnvString("JWT_SECRET", ""),
		GRPCAddr:           platformconfig.EnvString("GRPC_ADDR", ":9090"),
		RedisURL:           platformconfig.EnvString("REDIS_URL", ""),
		NATSURL:            platformconfig.EnvString("NATS_URL", ""),
		CacheTTL:           platformconfig.EnvDuration("CACHE_TTL", 30*time.Second),
		MaxThreadDepth:     platformconfig.EnvInt("MAX_THREAD_DEPTH", 0),
		MigrateOnStart:     platformconfig.EnvBool("MIGRATE_ON_START", false),
		CBMaxRequests:      uint32(platformconfig.EnvInt("CB_MAX_REQUESTS", 5)),
		CBInterval:         platformconfig.EnvDuration("CB_INTERVAL", 60*time.Second),
		CBTimeout:          platformconfig.EnvDuration("CB_TIMEOUT", 30*time.Second),
		CBFailureThreshold: uint32(platformconfig.EnvInt("CB_FAILURE_THRESHOLD", 5)),
		IdempotencyTTL:     platformconfig.EnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		WriteRatePerSec:    platformconfig.EnvInt("WRITE_RATE_PER_SEC", 5),
		WriteBurst:         platformconfig.EnvInt("WRITE_BURST", 20),
		TrustForwardedFor:  platformconfig.EnvBool("TRUST_FORWARDED_FOR", false),
	}

	if cfg.CursorSecret == "" {
		if cfg.IsProduction {
			return Config{}, errors.New("CURSOR_SECRET is required in production")
		}
		cfg.CursorSecret = "dev-cursor-secret"
	}
	if cfg.IsProduction && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Config{}, errors.New("DATABASE_URL is required in production")
	}
	return cfg, nil
}
