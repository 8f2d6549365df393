package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/ledger"
)

// FormatTradeOrg renders a trade as an Org-mode block suitable for pasting
// into a journal file. Structured facts live in a PROPERTIES drawer for easy
// search; the narrative sections are left for the trader to fill in.
func FormatTradeOrg(t *ledger.Trade) string {
	status := "OPEN"
	if t.Closed {
		status = "CLOSED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Symbol, strings.ToUpper(string(t.Side)), shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":BROKER: %s\n", t.Broker)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":STATUS: %s\n", status)
	fmt.Fprintf(&b, ":QUANTITY: %s\n", t.Quantity)
	fmt.Fprintf(&b, ":CLOSED_QUANTITY: %s\n", t.ClosedQuantity)
	fmt.Fprintf(&b, ":AVERAGE_ENTRY: %s\n", t.AverageEntry)
	if !t.AverageExit.IsZero() {
		fmt.Fprintf(&b, ":AVERAGE_EXIT: %s\n", t.AverageExit)
	}
	fmt.Fprintf(&b, ":ENTRY_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339))
	if !t.ExitTime.IsZero() {
		fmt.Fprintf(&b, ":EXIT_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339))
	}
	if t.Closed {
		fmt.Fprintf(&b, ":PNL: %s\n", t.PnL)
		fmt.Fprintf(&b, ":FEES: %s\n", t.Fees)
		fmt.Fprintf(&b, ":NET_PNL: %s\n", t.NetPnL)
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []*ledger.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10]
}
