// Package tx provides the transactional boundary for store mutations. A
// runner opens the transaction and carries it through context; postgres
// stores join it via From, so subtree rewrites and link recomputes commit
// or vanish as one unit.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey ctxKey

// WithTx returns a context carrying the open transaction for stores
// downstream of RunInTx.
func WithTx(ctx context.Context, dbTx *sql.Tx) context.Context {
	if dbTx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, dbTx)
}

// From reports the transaction carried by ctx, if any. Stores fall back to
// their root handle when none is present.
func From(ctx context.Context) (*sql.Tx, bool) {
	dbTx, ok := ctx.Value(txKey).(*sql.Tx)
	return dbTx, ok
}
