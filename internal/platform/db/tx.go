package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type contextKey string

// TxKey carries an open transaction through a context so repositories join it
// instead of using the shared pool.
const TxKey contextKey = "db_tx"

// WithTx returns a context carrying the given transaction.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, TxKey, tx)
}

// TxFromContext retrieves the transaction from context, or nil when the caller
// is not inside one.
func TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(TxKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}
