package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an aggregated position. It is fixed when the
// trade is created and never changes afterwards.
type TradeSide string

const (
	Long  TradeSide = "long"
	Short TradeSide = "short"
)

func (s TradeSide) Opposite() TradeSide {
	if s == Long {
		return Short
	}
	return Long
}

// entrySide returns the execution side that adds to a position of side s.
func entrySide(s TradeSide) Side {
	if s == Long {
		return Buy
	}
	return Sell
}

func tradeSideFor(s Side) TradeSide {
	if s == Buy {
		return Long
	}
	return Short
}

// Trade is a derived, aggregated position for one (broker, symbol) pair. It
// owns no independent state: every field is reproducible by folding over the
// executions currently linked to it, so edits to history can simply rebuild.
type Trade struct {
	ID             string
	Broker         string
	Instrument     string
	Symbol         string
	Side           TradeSide
	Quantity       decimal.Decimal // total entry-side quantity
	ClosedQuantity decimal.Decimal
	AverageEntry   decimal.Decimal
	EntryTime      time.Time
	AverageExit    decimal.Decimal // zero while no quantity has been closed
	ExitTime       time.Time       // zero while open
	PnL            decimal.Decimal // zero while open
	Fees           decimal.Decimal
	NetPnL         decimal.Decimal
	Closed         bool
}

func (t *Trade) Open() bool { return !t.Closed }

// Link ties an execution to a trade it participated in. OverrideQuantity is
// set only when part of the execution's quantity applies to this trade, which
// happens exclusively when a flip splits one execution across two trades.
// AllTradesClosed marks links after which no trade anywhere in the ledger was
// open; these are the checkpoints that bound regeneration.
type Link struct {
	TradeID          string
	ExecutionID      string
	OverrideQuantity *decimal.Decimal
	AllTradesClosed  bool
}

// AppliedQuantity is the portion of the execution that counts toward the
// linked trade.
func (l *Link) AppliedQuantity(e *Execution) decimal.Decimal {
	if l.OverrideQuantity != nil {
		return *l.OverrideQuantity
	}
	return e.Quantity
}

// Calculator computes fees and PnL for a closed quantity. Implementations
// must be pure: same inputs, same outputs, no I/O. The engine calls it only
// when a trade is (re)computed in the closed state.
type Calculator interface {
	FeesAndPnL(broker, instrument string, entry, exit, quantity decimal.Decimal, side TradeSide) (pnl, fees, netPnL decimal.Decimal)
}

// GrossCalculator is the no-fee calculator used when no brokerage schedule is
// configured: direction-correct PnL, zero fees, net equals gross.
type GrossCalculator struct{}

func (GrossCalculator) FeesAndPnL(_, _ string, entry, exit, quantity decimal.Decimal, side TradeSide) (pnl, fees, netPnL decimal.Decimal) {
	diff := exit.Sub(entry)
	if side == Short {
		diff = entry.Sub(exit)
	}
	pnl = diff.Mul(quantity)
	return pnl, decimal.Zero, pnl
}
