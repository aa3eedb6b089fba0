package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultDailyAuditLimit caps free-tier guest audits per calendar day.
const DefaultDailyAuditLimit = 3

// DefaultRetentionDays bounds how long stale guest usage records are kept
// before the retention worker purges them.
const DefaultRetentionDays = 30

// Config captures process-level configuration.
type Config struct {
	Addr string

	// JWTSigningKey is injected into the credential verifier at construction.
	// An empty key is a deployment error, not a per-request condition.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	DailyAuditLimit int
	RetentionDays   int

	DatabaseURL string
	Redis       RedisConfig

	KafkaBrokers []string
	AuditTopic   string
}

// RedisConfig holds connection settings for the optional Redis ledger backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// A missing JWT signing key fails startup here rather than surfacing per
// request.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            envOr("SCANGATE_ADDR", ":8080"),
		JWTSigningKey:   os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:       envOr("JWT_ISSUER", "scangate"),
		JWTAudience:     envOr("JWT_AUDIENCE", "scangate-api"),
		DailyAuditLimit: DefaultDailyAuditLimit,
		RetentionDays:   DefaultRetentionDays,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		AuditTopic: envOr("AUDIT_TOPIC", "scangate.decisions"),
	}

	if cfg.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY is required")
	}

	if v := os.Getenv("DAILY_AUDIT_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("DAILY_AUDIT_LIMIT must be a positive integer, got %q", v)
		}
		cfg.DailyAuditLimit = limit
	}

	if v := os.Getenv("QUOTA_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("QUOTA_RETENTION_DAYS must be a positive integer, got %q", v)
		}
		cfg.RetentionDays = days
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
