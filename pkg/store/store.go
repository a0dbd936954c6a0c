// Package store implements C12: a typed accessor over the relational store
// for projects, jobs, and job runs, enforcing per-org uniqueness invariants
// (spec §4.12).
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, letting callers pass
// either a pooled connection or a caller-owned transaction.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Store is the typed accessor over catalog_projects, catalog_jobs, and
// catalog_job_runs.
type Store struct {
	db *sqlx.DB
}

// New constructs a Store over an already-migrated connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying pool for callers that need a transaction (the
// scan handler commits per-path; see pkg/jobs).
func (s *Store) DB() *sqlx.DB {
	return s.db
}

const pgUniqueViolation = "23505"

// wrapWriteErr maps a unique-constraint violation to catalogerr.ErrAlreadyExists.
func wrapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("store: %s: %w", op, catalogerr.ErrAlreadyExists)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
