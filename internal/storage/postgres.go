package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pfledger/internal/log"
)

//go:embed postgres_kv.sql
var postgresSchema string

// PostgresConfig holds the connection settings for PostgresStore.
type PostgresConfig struct {
	// URL is a libpq connection string or postgres:// URL.
	URL string

	MaxPoolSize int
}

// PostgresStore keeps key-value pairs in a PostgreSQL table so several
// instances can share one ledger.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

var _ KeyValueStore = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *log.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 4
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Get implements KeyValueStore
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %v", ErrStorageUnavailable, key, err)
	}
	return value, true, nil
}

// Set implements KeyValueStore
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("%w: set %q: %v", ErrStorageUnavailable, key, err)
	}

	s.logger.DebugContext(ctx, "Value saved to PostgreSQL", log.FieldStorageKey, key, "bytes", len(value))
	return nil
}

// Delete implements KeyValueStore
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: delete %q: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}
