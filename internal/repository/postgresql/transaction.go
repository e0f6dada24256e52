package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// ReadSnapshot is a read-only transaction in which every query sees the same snapshot.
var ReadSnapshot = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// WithTransaction executes fn inside a database transaction. Repositories called with
// the ctx passed to fn run their queries in that transaction.
func WithTransaction(ctx context.Context, db *database.DB, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.Error("Rollback failed during panic recovery", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetQuerier returns either transaction or pool
// Used in repositories to support both transactional and non-transactional operations
func GetQuerier(ctx context.Context, db *database.DB) database.Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}
