package postgres

import (
	"context"

	"vtu-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor using the connection pool. The
// services open one transaction per ledger mutation: debit plus pending
// entry on initiate, terminal transition plus its wallet mutation on
// resolve.
type Transactor struct {
	pool Pool
}

var _ ports.DBTransactor = (*Transactor)(nil)

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new database transaction at the default isolation level.
// The ledger's guarantees come from row locks and the pending-state
// predicate, not from a stricter isolation mode.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
