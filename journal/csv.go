// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/rustyeddy/tradebook/ledger"
)

// WriteTradesCSV writes the trade ledger to w with a header row.
func WriteTradesCSV(w io.Writer, trades []*ledger.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"trade_id", "broker", "instrument", "symbol", "side",
		"quantity", "closed_quantity", "average_entry", "average_exit",
		"entry_time", "exit_time", "pnl", "fees", "net_pnl", "closed",
	}); err != nil {
		return err
	}

	for _, t := range trades {
		avgExit, exitTime := "", ""
		if !t.AverageExit.IsZero() {
			avgExit = t.AverageExit.String()
		}
		if !t.ExitTime.IsZero() {
			exitTime = t.ExitTime.UTC().Format(time.RFC3339)
		}
		closed := "false"
		if t.Closed {
			closed = "true"
		}
		if err := cw.Write([]string{
			t.ID, t.Broker, t.Instrument, t.Symbol, string(t.Side),
			t.Quantity.String(), t.ClosedQuantity.String(),
			t.AverageEntry.String(), avgExit,
			t.EntryTime.UTC().Format(time.RFC3339), exitTime,
			t.PnL.String(), t.Fees.String(), t.NetPnL.String(), closed,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteExecutionsCSV writes the raw execution history to w with a header row.
func WriteExecutionsCSV(w io.Writer, execs []*ledger.Execution) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"id", "broker", "instrument", "symbol", "side",
		"quantity", "lots", "price", "executed_at", "locked",
	}); err != nil {
		return err
	}

	for _, e := range execs {
		lots := ""
		if !e.Lots.IsZero() {
			lots = e.Lots.String()
		}
		locked := "false"
		if e.Locked {
			locked = "true"
		}
		if err := cw.Write([]string{
			e.ID, e.Broker, e.Instrument, e.Symbol, string(e.Side),
			e.Quantity.String(), lots, e.Price.String(),
			e.Timestamp.UTC().Format(time.RFC3339), locked,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
