package ledger

import "errors"

// Standard ledger errors. Callers match with errors.Is; the journal layer
// wraps storage-level misses with these.
var (
	// ErrInvalidExecution rejects executions with a non-positive quantity or
	// price (or missing identity fields) before anything is written.
	ErrInvalidExecution = errors.New("invalid execution")

	// ErrExecutionLocked is returned when an edit or delete targets a locked
	// execution. The ledger is left untouched.
	ErrExecutionLocked = errors.New("execution is locked")

	// ErrExecutionNotFound is returned when an edit or delete names an
	// unknown execution id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrTradeNotFound is returned by trade lookups for unknown ids.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrInconsistentLedger signals an internal invariant violation during
	// consolidation. It indicates a bug, not a recoverable user condition;
	// the surrounding transaction is rolled back.
	ErrInconsistentLedger = errors.New("inconsistent ledger state")
)
