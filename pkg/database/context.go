package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx operations shared by *pgxpool.Pool, pgx.Tx
// and nested transactions. Repositories run against whatever Querier the
// caller placed in the context, so the same repository code serves both
// autocommit reads and rows written inside a batch transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querierKey struct{}

// WithQuerier returns a context that carries q. Repositories called with the
// returned context execute their SQL through q.
func WithQuerier(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, querierKey{}, q)
}

// QuerierFrom extracts the Querier stored by WithQuerier. The fallback is
// used when the context carries none, which is the autocommit path.
func QuerierFrom(ctx context.Context, fallback Querier) Querier {
	if q, ok := ctx.Value(querierKey{}).(Querier); ok {
		return q
	}
	return fallback
}
