package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"scangate/internal/audit"
	"scangate/internal/gate"
	"scangate/internal/platform/config"
	"scangate/internal/platform/events"
	"scangate/internal/platform/httpserver"
	"scangate/internal/platform/logger"
	"scangate/internal/platform/metrics"
	"scangate/internal/platform/postgres"
	platformredis "scangate/internal/platform/redis"
	principalstore "scangate/internal/principal/store"
	"scangate/internal/quota"
	quotaservice "scangate/internal/quota/service"
	quotastore "scangate/internal/quota/store"
	"scangate/internal/token"
	httptransport "scangate/internal/transport/http"
)

const retentionInterval = time.Hour

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthChecker{}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("postgres migration failed", "error", err)
			os.Exit(1)
		}
		health["postgres"] = dbHealth{db: db}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient
	}

	principals := newPrincipalStore(db)
	admin, user, err := principalstore.SeedBootstrapPrincipals(ctx, principals)
	if err != nil {
		log.Error("principal bootstrap failed", "error", err)
		os.Exit(1)
	}
	// Operators mint tokens against these subjects; passwords stay hashed.
	log.Info("bootstrap principals ready", "admin_id", admin.ID, "user_id", user.ID)

	verifier, err := token.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, principals)
	if err != nil {
		log.Error("verifier construction failed", "error", err)
		os.Exit(1)
	}

	var auditPublisher events.Publisher
	if kafkaPublisher, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log); err != nil {
		log.Error("kafka unavailable", "error", err)
		os.Exit(1)
	} else if kafkaPublisher != nil {
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	}

	m := metrics.New()

	ledger := newLedgerStore(db, redisClient, log)
	quotaSvc := quotaservice.New(ledger, cfg.DailyAuditLimit,
		quotaservice.WithLogger(log),
		quotaservice.WithAuditPublisher(auditPublisher),
		quotaservice.WithMetrics(m),
	)

	g := gate.New(verifier, quotaSvc,
		gate.WithLogger(log),
		gate.WithAuditPublisher(auditPublisher),
		gate.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Gate:       g,
		Dispatcher: audit.NewDispatcher(log),
		Quota:      quotaSvc,
		Principals: principals,
		Health:     health,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting scangate", "addr", cfg.Addr, "daily_limit", cfg.DailyAuditLimit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := quotaSvc.StartRetention(groupCtx, retentionInterval, cfg.RetentionDays)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("scangate stopped")
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// newPrincipalStore prefers PostgreSQL and falls back to the in-memory store
// for single-node demos.
func newPrincipalStore(db *sql.DB) principalstore.Store {
	if db != nil {
		return principalstore.NewPostgres(db)
	}
	return principalstore.NewInMemory()
}

// newLedgerStore picks the quota backend: Redis when configured (lowest
// admission latency, TTL-based retention), then PostgreSQL, then memory.
func newLedgerStore(db *sql.DB, redisClient *platformredis.Client, log *slog.Logger) quota.Store {
	if redisClient != nil {
		return quotastore.NewRedis(redisClient.Client)
	}
	if db != nil {
		return quotastore.NewPostgres(db)
	}
	log.Warn("no durable ledger backend configured, quota resets on restart")
	return quotastore.NewInMemory()
}
