package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Service owns the Postgres handle backing the idempotency store.
type Service interface {
	DB() *sql.DB
	// Migrate creates the tables if they do not exist yet.
	Migrate(ctx context.Context) error
	// Health returns connection-pool statistics keyed by name.
	Health(ctx context.Context) map[string]string
	Close() error
}

type service struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS checkout_orders (
	receipt      TEXT PRIMARY KEY,
	order_id     TEXT NOT NULL UNIQUE,
	amount_minor BIGINT NOT NULL,
	currency     CHAR(3) NOT NULL,
	notes        JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS payment_claims (
	order_id    TEXT PRIMARY KEY,
	payment_id  TEXT NOT NULL,
	verified_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS checkout_orders_created_at_idx ON checkout_orders (created_at);
CREATE INDEX IF NOT EXISTS payment_claims_verified_at_idx ON payment_claims (verified_at);
`

func New(ctx context.Context, dsn string, logger *zap.Logger) (Service, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &service{db: db, logger: logger}, nil
}

func (s *service) DB() *sql.DB { return s.db }

func (s *service) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("postgres ping failed", zap.Error(err))
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.WaitCount > 1000 {
		stats["message"] = "high number of connection waits"
	}
	return stats
}

func (s *service) Close() error {
	s.logger.Info("closing postgres connection")
	return s.db.Close()
}
