package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a single execution as reported by the broker.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Execution is one fill reported by a broker venue. Executions are facts:
// immutable unless explicitly edited, and totally ordered by (Timestamp, Seq)
// where Seq is the store insertion order breaking timestamp ties.
type Execution struct {
	ID         string
	Seq        int64 // assigned by the store on insert
	Broker     string
	Instrument string
	Symbol     string
	Quantity   decimal.Decimal
	Lots       decimal.Decimal // optional broker lot count, zero when not reported
	Side       Side
	Price      decimal.Decimal
	Timestamp  time.Time
	Locked     bool // locked executions reject edit and delete
}

// Validate rejects executions that must never reach consolidation.
func (e *Execution) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidExecution)
	case e.Broker == "":
		return fmt.Errorf("%w: missing broker", ErrInvalidExecution)
	case e.Symbol == "":
		return fmt.Errorf("%w: missing symbol", ErrInvalidExecution)
	case !e.Side.Valid():
		return fmt.Errorf("%w: side %q", ErrInvalidExecution, e.Side)
	case !e.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity %s", ErrInvalidExecution, e.Quantity)
	case !e.Price.IsPositive():
		return fmt.Errorf("%w: price %s", ErrInvalidExecution, e.Price)
	case e.Lots.IsNegative():
		return fmt.Errorf("%w: lots %s", ErrInvalidExecution, e.Lots)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidExecution)
	}
	return nil
}

// before reports whether e precedes o in the consolidation timeline.
func (e *Execution) before(ts time.Time, seq int64) bool {
	if !e.Timestamp.Equal(ts) {
		return e.Timestamp.Before(ts)
	}
	return e.Seq < seq
}
