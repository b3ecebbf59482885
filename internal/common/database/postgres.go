// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"drift-workers/internal/common/config"
	apperrors "drift-workers/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient holds the pooled connection to the CRM export database.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool without dialing.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// ConnectPostgres opens the pool and verifies it answers within timeout.
func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig, timeout time.Duration) (*PostgresClient, error) {
	c, err := NewPostgres(cfg)
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}
	return c, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Query executes a query that returns rows
func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}
