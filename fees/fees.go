// Package fees implements the pluggable brokerage fee and PnL calculator.
//
// The consolidation engine treats this as an external collaborator: a pure
// function of (broker, instrument, prices, quantity, side). Fee schedules are
// broker-parameterized with optional per-instrument overrides.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/ledger"
)

var hundred = decimal.NewFromInt(100)

// LegRate is the commission charged on one leg (entry or exit) of a round
// trip: a flat amount per unit plus a percentage of the leg's notional.
type LegRate struct {
	PerUnit         decimal.Decimal
	PercentNotional decimal.Decimal // e.g. 0.025 means 0.025% of notional
}

func (r LegRate) zero() bool {
	return r.PerUnit.IsZero() && r.PercentNotional.IsZero()
}

// BrokerSchedule is a broker's default leg rate plus per-instrument
// overrides.
type BrokerSchedule struct {
	LegRate
	Instruments map[string]LegRate
}

// Schedule maps brokers to their fee schedules. Unknown brokers and
// instruments fall back to zero fees, so a zero-value Schedule computes gross
// PnL only. Schedule is pure and safe for concurrent use.
type Schedule struct {
	Brokers map[string]BrokerSchedule
}

func (s *Schedule) rate(broker, instrument string) LegRate {
	if s == nil {
		return LegRate{}
	}
	bs, ok := s.Brokers[broker]
	if !ok {
		return LegRate{}
	}
	if r, ok := bs.Instruments[instrument]; ok && !r.zero() {
		return r
	}
	return bs.LegRate
}

// FeesAndPnL implements ledger.Calculator: gross PnL for the closed quantity,
// the commission across both legs, and the net result.
func (s *Schedule) FeesAndPnL(broker, instrument string, entry, exit, quantity decimal.Decimal, side ledger.TradeSide) (pnl, fees, netPnL decimal.Decimal) {
	diff := exit.Sub(entry)
	if side == ledger.Short {
		diff = entry.Sub(exit)
	}
	pnl = diff.Mul(quantity)

	r := s.rate(broker, instrument)
	perUnit := r.PerUnit.Mul(quantity).Mul(decimal.NewFromInt(2))
	notional := entry.Add(exit).Mul(quantity)
	percent := r.PercentNotional.Div(hundred).Mul(notional)
	fees = perUnit.Add(percent)

	return pnl, fees, pnl.Sub(fees)
}
