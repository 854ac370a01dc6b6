// Package repository provides postgres persistence for the statistics bounded
// context: the ingested case/task event history, the produced record series,
// and the per-case write lock.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed implementation of StatisticsRepository.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a repository on the given connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks database connectivity for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithCaseLock runs fn inside a transaction holding the advisory lock for the
// case. The lock is keyed by a stable hash of the case reference and released
// with the transaction, so the lock and the writes it guards share one
// failure domain. Repository calls made with the context fn receives join the
// same transaction.
func (r *Repository) WithCaseLock(ctx context.Context, caseRef string, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, caseRef); err != nil {
		return err
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type txKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// dbConn is satisfied by both *pgxpool.Pool and pgx.Tx so queries can run
// inside or outside a case lock transparently.
type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db returns the transaction bound to ctx by WithCaseLock, or the pool.
func (r *Repository) db(ctx context.Context) dbConn {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}
