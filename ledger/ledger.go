// Package ledger consolidates raw broker executions into aggregated trades.
//
// Executions are the facts; trades are entirely derived. Editing or deleting
// a past execution regenerates the affected suffix of trades, bounded by the
// most recent point at which the whole ledger was flat.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger is the single-writer consolidation service over one store. All
// mutations are serialized per ledger instance; separate ledgers (separate
// store files) are independent.
type Ledger struct {
	mu    sync.Mutex
	store Store
	calc  Calculator
	log   *zap.Logger
}

type Option func(*Ledger)

// WithCalculator sets the brokerage fee/PnL calculator. Defaults to
// GrossCalculator (no fees).
func WithCalculator(c Calculator) Option {
	return func(l *Ledger) {
		if c != nil {
			l.calc = c
		}
	}
}

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

func Open(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		calc:  GrossCalculator{},
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Add records a new execution and folds it into the trade ledger. The
// execution id and timestamp are supplied by the caller so that replays are
// deterministic. Returns the id on success.
func (l *Ledger) Add(ctx context.Context, e Execution) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	seq, err := tx.InsertExecution(&e)
	if err != nil {
		return "", err
	}
	e.Seq = seq

	if err := l.rebuild(tx, e.Timestamp, e.Seq, nil); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	l.log.Debug("execution recorded",
		zap.String("id", e.ID),
		zap.String("broker", e.Broker),
		zap.String("symbol", e.Symbol),
		zap.String("side", string(e.Side)))
	return e.ID, nil
}

// Edit replaces the fields of the execution named by e.ID and regenerates
// every trade derived after the earlier of the old and new timestamps. Fails
// with ErrExecutionNotFound or ErrExecutionLocked without mutating anything.
func (l *Ledger) Edit(ctx context.Context, e Execution) error {
	if err := e.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := tx.GetExecution(e.ID)
	if err != nil {
		return err
	}
	if cur.Locked {
		return fmt.Errorf("edit execution %q: %w", e.ID, ErrExecutionLocked)
	}
	e.Seq = cur.Seq
	e.Locked = cur.Locked

	// The regeneration must cover both the old and the new position of the
	// execution in the timeline.
	from := cur.Timestamp
	if e.Timestamp.Before(from) {
		from = e.Timestamp
	}

	if err := l.rebuild(tx, from, cur.Seq, func() error {
		return tx.UpdateExecution(&e)
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	l.log.Debug("execution edited", zap.String("id", e.ID))
	return nil
}

// Delete removes an execution and regenerates the trades derived from it
// onward. Fails with ErrExecutionNotFound or ErrExecutionLocked without
// mutating anything.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := tx.GetExecution(id)
	if err != nil {
		return err
	}
	if cur.Locked {
		return fmt.Errorf("delete execution %q: %w", id, ErrExecutionLocked)
	}

	if err := l.rebuild(tx, cur.Timestamp, cur.Seq, func() error {
		return tx.DeleteExecution(id)
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	l.log.Debug("execution deleted", zap.String("id", id))
	return nil
}

// SetLocked toggles the lock flag. Locking does not touch derived trades, so
// no regeneration runs.
func (l *Ledger) SetLocked(ctx context.Context, id string, locked bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := tx.GetExecution(id)
	if err != nil {
		return err
	}
	cur.Locked = locked
	if err := tx.UpdateExecution(cur); err != nil {
		return err
	}
	return tx.Commit()
}

// rebuild is the regeneration coordinator. It finds the latest global-flat
// checkpoint strictly before (ts, seq), discards every trade derived after
// it, applies the pending mutation, and replays the surviving executions
// through a fresh engine. With no checkpoint it replays the whole history.
// Trades at or before the checkpoint are provably unaffected: the ledger was
// flat there, and no position state carries across a global-flat boundary.
func (l *Ledger) rebuild(tx Tx, ts time.Time, seq int64, mutate func() error) error {
	cp, err := tx.LatestCheckpointBefore(ts, seq)
	if err != nil {
		return err
	}

	stale, err := tx.TradeIDsSince(cp)
	if err != nil {
		return err
	}
	for _, id := range stale {
		if err := tx.DeleteTrade(id); err != nil {
			return err
		}
	}

	if mutate != nil {
		if err := mutate(); err != nil {
			return err
		}
	}

	execs, err := tx.ExecutionsSince(cp)
	if err != nil {
		return err
	}

	en := NewEngine(l.calc)
	for _, e := range execs {
		if _, err := en.Consume(e); err != nil {
			return err
		}
	}
	for _, t := range en.Trades() {
		if err := tx.InsertTrade(t); err != nil {
			return err
		}
	}
	for _, lk := range en.Links() {
		if err := tx.InsertLink(lk); err != nil {
			return err
		}
	}

	l.log.Debug("ledger regenerated",
		zap.Bool("from_checkpoint", cp != nil),
		zap.Int("replayed", len(execs)),
		zap.Int("trades", len(en.Trades())))
	return nil
}

// Read-side projections. Served from the store without taking the write
// lock; the store serializes them against in-flight mutations.

func (l *Ledger) Execution(ctx context.Context, id string) (*Execution, error) {
	return l.store.Execution(ctx, id)
}

func (l *Ledger) Executions(ctx context.Context) ([]*Execution, error) {
	return l.store.Executions(ctx)
}

func (l *Ledger) Trade(ctx context.Context, id string) (*Trade, error) {
	return l.store.Trade(ctx, id)
}

func (l *Ledger) Trades(ctx context.Context) ([]*Trade, error) {
	return l.store.Trades(ctx)
}

func (l *Ledger) OpenTrades(ctx context.Context) ([]*Trade, error) {
	return l.store.OpenTrades(ctx)
}

func (l *Ledger) Links(ctx context.Context) ([]*Link, error) {
	return l.store.Links(ctx)
}

func (l *Ledger) TradesForExecution(ctx context.Context, executionID string) ([]*Trade, error) {
	return l.store.TradesForExecution(ctx, executionID)
}

func (l *Ledger) ExecutionsForTrade(ctx context.Context, tradeID string) ([]*Execution, error) {
	return l.store.ExecutionsForTrade(ctx, tradeID)
}
