// Package database provides the PostgreSQL connection, pooling, and
// migration utilities shared by pkg/store and pkg/events.
package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// Config holds database connection and pool configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders cfg as a libpq-style connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Client wraps a pooled, migrated connection to the catalog database.
type Client struct {
	DB *sqlx.DB
}

// SQLDB returns the underlying database/sql handle, used by health checks
// and by golang-migrate.
func (c *Client) SQLDB() *stdsql.DB {
	return c.DB.DB
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}

// NewClient opens a connection pool against cfg, verifies connectivity, and
// applies any pending embedded migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	client := &Client{DB: db}

	if err := runMigrations(cfg.Database, client.SQLDB()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: migrate: %w", err)
	}

	return client, nil
}

// NewClientFromDB wraps an already-open *sqlx.DB without running migrations,
// used by tests that manage their own migration lifecycle.
func NewClientFromDB(db *sqlx.DB) *Client {
	return &Client{DB: db}
}

// NewClientFromDSN opens a pool against a raw libpq connection string and
// applies migrations against databaseName, used by tests that isolate each
// run in its own schema via a search_path query parameter rather than
// building the DSN from a Config.
func NewClientFromDSN(ctx context.Context, dsn, databaseName string, maxOpenConns, maxIdleConns int) (*Client, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	client := &Client{DB: db}
	if err := runMigrations(databaseName, client.SQLDB()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: migrate: %w", err)
	}
	return client, nil
}
