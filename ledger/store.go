package ledger

import (
	"context"
	"time"
)

// Store is the durable, transactional backing for executions, trades and
// links. The journal package provides the SQLite implementation. Reads may be
// served outside a transaction; every mutation goes through a Tx so that a
// failed regeneration leaves no partial state behind.
type Store interface {
	// Begin opens a transaction covering one ledger mutation, including the
	// full regeneration replay it triggers.
	Begin(ctx context.Context) (Tx, error)

	Execution(ctx context.Context, id string) (*Execution, error)
	Executions(ctx context.Context) ([]*Execution, error)
	Trade(ctx context.Context, id string) (*Trade, error)
	Trades(ctx context.Context) ([]*Trade, error)
	OpenTrades(ctx context.Context) ([]*Trade, error)
	Links(ctx context.Context) ([]*Link, error)

	// TradesForExecution and ExecutionsForTrade project the link table.
	TradesForExecution(ctx context.Context, executionID string) ([]*Trade, error)
	ExecutionsForTrade(ctx context.Context, tradeID string) ([]*Execution, error)
}

// Tx is a single atomic mutation of the ledger. Commit makes every change
// visible at once; Rollback discards everything. Rollback after Commit is a
// no-op.
type Tx interface {
	// InsertExecution stores e and returns its assigned Seq.
	InsertExecution(e *Execution) (int64, error)
	UpdateExecution(e *Execution) error
	DeleteExecution(id string) error
	GetExecution(id string) (*Execution, error)

	// LatestCheckpointBefore returns the most recent execution strictly
	// before (ts, seq) whose link carries the all-trades-closed flag, or nil
	// when no such checkpoint exists.
	LatestCheckpointBefore(ts time.Time, seq int64) (*Execution, error)

	// ExecutionsSince lists executions strictly after the checkpoint in
	// (timestamp, seq) order; a nil checkpoint means the whole history.
	ExecutionsSince(checkpoint *Execution) ([]*Execution, error)

	// TradeIDsSince lists the distinct trades linked to any execution
	// strictly after the checkpoint; a nil checkpoint means every trade.
	TradeIDsSince(checkpoint *Execution) ([]string, error)

	InsertTrade(t *Trade) error
	// DeleteTrade removes the trade and cascades to its links.
	DeleteTrade(id string) error
	InsertLink(l *Link) error

	Commit() error
	Rollback() error
}
