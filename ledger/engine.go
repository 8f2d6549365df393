package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome classifies what consuming one execution did to the ledger.
type Outcome int

const (
	OpenedNew Outcome = iota
	UpdatedOpen
	Closed
	ClosedAndFlipped
)

func (o Outcome) String() string {
	switch o {
	case OpenedNew:
		return "opened-new"
	case UpdatedOpen:
		return "updated-open"
	case Closed:
		return "closed"
	case ClosedAndFlipped:
		return "closed-and-flipped"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type posKey struct {
	broker string
	symbol string
}

type linkedExec struct {
	exec *Execution
	qty  decimal.Decimal
}

// Engine folds a (timestamp, seq)-ordered stream of executions into
// aggregated trades. It is forward-only: edits to history go through the
// ledger's regeneration path, which replays a fresh engine over the affected
// suffix. The caller persists Trades() and Links() in the same transaction
// that triggered the replay.
type Engine struct {
	calc    Calculator
	open    map[posKey]*Trade
	trades  []*Trade
	links   []*Link
	byTrade map[string][]linkedExec

	openCount int
	lastTS    time.Time
	lastSeq   int64
}

func NewEngine(calc Calculator) *Engine {
	if calc == nil {
		calc = GrossCalculator{}
	}
	return &Engine{
		calc:    calc,
		open:    make(map[posKey]*Trade),
		byTrade: make(map[string][]linkedExec),
	}
}

// Trades returns every trade produced so far, in creation order.
func (en *Engine) Trades() []*Trade { return en.trades }

// Links returns every trade-execution link produced so far.
func (en *Engine) Links() []*Link { return en.links }

// GloballyFlat reports whether no trade across the entire ledger is open.
func (en *Engine) GloballyFlat() bool { return en.openCount == 0 }

// Consume applies one execution against the current open position for its
// (broker, symbol) pair. The link(s) created for the execution are stamped
// with the global-flat checkpoint flag after the position change takes
// effect.
func (en *Engine) Consume(e *Execution) (Outcome, error) {
	if !en.lastTS.IsZero() && e.before(en.lastTS, en.lastSeq) {
		return 0, fmt.Errorf("%w: execution %s consumed out of order", ErrInconsistentLedger, e.ID)
	}
	en.lastTS, en.lastSeq = e.Timestamp, e.Seq

	var created []*Link
	var out Outcome

	key := posKey{e.Broker, e.Symbol}
	t := en.open[key]

	switch {
	case t == nil:
		lk, err := en.openTrade(e, tradeSideFor(e.Side), nil)
		if err != nil {
			return 0, err
		}
		created = append(created, lk)
		out = OpenedNew

	case e.Side == entrySide(t.Side):
		// Same direction: scale into the position.
		lk := en.link(t, e, nil)
		if err := en.recompute(t); err != nil {
			return 0, err
		}
		created = append(created, lk)
		out = UpdatedOpen

	default:
		remaining := t.Quantity.Sub(t.ClosedQuantity)
		openAfter := remaining.Sub(e.Quantity)

		switch openAfter.Sign() {
		case 1:
			// Partial close, position stays open.
			lk := en.link(t, e, nil)
			if err := en.recompute(t); err != nil {
				return 0, err
			}
			created = append(created, lk)
			out = UpdatedOpen

		case 0:
			// Exact close. Not a flip: no new trade is created.
			lk := en.link(t, e, nil)
			if err := en.closeOut(key, t); err != nil {
				return 0, err
			}
			created = append(created, lk)
			out = Closed

		default:
			// Flip: e over-closes t. Split e into the portion that exactly
			// closes t and the leftover that opens the opposite position.
			closing := remaining
			leftover := openAfter.Neg()

			lk := en.link(t, e, &closing)
			if err := en.closeOut(key, t); err != nil {
				return 0, err
			}
			flipped, err := en.openTrade(e, t.Side.Opposite(), &leftover)
			if err != nil {
				return 0, err
			}
			created = append(created, lk, flipped)
			out = ClosedAndFlipped
		}
	}

	// Checkpoint stamp: true iff the whole ledger is flat right now.
	flat := en.openCount == 0
	for _, lk := range created {
		lk.AllTradesClosed = flat
	}
	return out, nil
}

// openTrade creates a new trade opened by e and registers it as the open
// position for its (broker, symbol) pair. The trade id derives from the
// opening execution so regeneration is deterministic.
func (en *Engine) openTrade(e *Execution, side TradeSide, override *decimal.Decimal) (*Link, error) {
	t := &Trade{
		ID:         "T-" + e.ID,
		Broker:     e.Broker,
		Instrument: e.Instrument,
		Symbol:     e.Symbol,
		Side:       side,
		EntryTime:  e.Timestamp,
	}
	en.trades = append(en.trades, t)
	en.open[posKey{e.Broker, e.Symbol}] = t
	en.openCount++

	lk := en.link(t, e, override)
	if err := en.recompute(t); err != nil {
		return nil, err
	}
	return lk, nil
}

func (en *Engine) link(t *Trade, e *Execution, override *decimal.Decimal) *Link {
	var ov *decimal.Decimal
	if override != nil {
		v := *override
		ov = &v
	}
	lk := &Link{TradeID: t.ID, ExecutionID: e.ID, OverrideQuantity: ov}
	en.links = append(en.links, lk)

	qty := e.Quantity
	if ov != nil {
		qty = *ov
	}
	en.byTrade[t.ID] = append(en.byTrade[t.ID], linkedExec{exec: e, qty: qty})
	return lk
}

// closeOut recomputes t after its final link and retires it from the open
// index. The recompute must leave the trade closed.
func (en *Engine) closeOut(key posKey, t *Trade) error {
	if err := en.recompute(t); err != nil {
		return err
	}
	if !t.Closed {
		return fmt.Errorf("%w: trade %s expected closed after final execution", ErrInconsistentLedger, t.ID)
	}
	delete(en.open, key)
	en.openCount--
	return nil
}

// recompute derives a trade's full state from its currently linked
// executions. It never patches averages incrementally: folding from scratch
// is the only version of this that stays correct under arbitrary edits.
func (en *Engine) recompute(t *Trade) error {
	rows := en.byTrade[t.ID]
	entry := entrySide(t.Side)

	entryQty, entryNotional := decimal.Zero, decimal.Zero
	for _, r := range rows {
		if r.exec.Side == entry {
			entryQty = entryQty.Add(r.qty)
			entryNotional = entryNotional.Add(r.qty.Mul(r.exec.Price))
		}
	}
	if !entryQty.IsPositive() {
		return fmt.Errorf("%w: trade %s has no entry quantity", ErrInconsistentLedger, t.ID)
	}

	// Exit contributions only count up to the entry quantity; any excess on
	// the last exit is excluded from the weighted average.
	exitQty, exitNotional, capped := decimal.Zero, decimal.Zero, decimal.Zero
	var lastExit time.Time
	for _, r := range rows {
		if r.exec.Side == entry {
			continue
		}
		portion := decimal.Min(r.qty, entryQty.Sub(exitQty))
		if portion.IsNegative() {
			portion = decimal.Zero
		}
		exitNotional = exitNotional.Add(portion.Mul(r.exec.Price))
		capped = capped.Add(portion)
		exitQty = exitQty.Add(r.qty)
		lastExit = r.exec.Timestamp
	}

	t.Quantity = entryQty
	t.AverageEntry = entryNotional.Div(entryQty)
	t.ClosedQuantity = decimal.Min(entryQty, exitQty)
	if t.ClosedQuantity.IsNegative() {
		return fmt.Errorf("%w: trade %s closed quantity %s", ErrInconsistentLedger, t.ID, t.ClosedQuantity)
	}
	if capped.IsPositive() {
		t.AverageExit = exitNotional.Div(capped)
	} else {
		t.AverageExit = decimal.Zero
	}
	t.Closed = exitQty.Cmp(entryQty) >= 0

	if t.Closed {
		t.ExitTime = lastExit
		t.PnL, t.Fees, t.NetPnL = en.calc.FeesAndPnL(
			t.Broker, t.Instrument, t.AverageEntry, t.AverageExit, t.ClosedQuantity, t.Side)
	} else {
		t.ExitTime = time.Time{}
		t.PnL, t.Fees, t.NetPnL = decimal.Zero, decimal.Zero, decimal.Zero
	}
	return nil
}
