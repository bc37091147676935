package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Advisory lock classes keyed per entity kind so different entity spaces
// never contend with each other.
const (
	LockClassPosition = int32(4001)
	LockClassBinding  = int32(4002)
)

// WithTx executes fn within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// LockEntity takes a transaction-scoped advisory lock on (class, id).
// Mutations to the same entity serialize; different entities proceed in
// parallel. The lock releases on commit or rollback.
func LockEntity(ctx context.Context, tx pgx.Tx, class int32, id int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, class, int32(id)); err != nil {
		return fmt.Errorf("platform/db: advisory lock (%d,%d): %w", class, id, err)
	}
	return nil
}
