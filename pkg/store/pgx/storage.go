// Package pgx implements the storage contract on PostgreSQL with pgvector.
// One statement per upsert keeps the merge atomic; maintenance steps run in
// separate transactions so each step is durable on its own.
package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-kb/lattice/pkg/store"
)

// Postgres error codes we translate into the storage error taxonomy.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Storage is the PostgreSQL store.Storage backend.
type Storage struct {
	pool *pgxpool.Pool
}

// New wraps an open pool. The pool must have pgvector types registered on
// its connections.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

var _ store.Storage = (*Storage)(nil)

// mapError folds driver errors into the storage taxonomy. what names the
// missing resource for not-found errors.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", what, store.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", what, store.ErrNotFound)
		case pgCheckViolation:
			return fmt.Errorf("%s: %s: %w", what, pgErr.ConstraintName, store.ErrValidation)
		}
	}
	return fmt.Errorf("%s: %w: %v", what, store.ErrDependency, err)
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Storage) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit transaction")
	}
	return nil
}
