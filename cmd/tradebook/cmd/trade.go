package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Inspect consolidated trades",
	Long: `Query the derived trade ledger.

Examples:
  tradebook trade list
  tradebook trade list --open
  tradebook trade show T-01J...
  tradebook trade execs T-01J...
  tradebook trade for-exec 01J...`,
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades",
	Args:  cobra.NoArgs,
	RunE:  runTradeList,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show one trade as an Org-mode journal block",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var tradeExecsCmd = &cobra.Command{
	Use:   "execs <trade-id>",
	Short: "List the executions linked to a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeExecs,
}

var tradeForExecCmd = &cobra.Command{
	Use:   "for-exec <execution-id>",
	Short: "List the trades an execution participated in",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeForExec,
}

var tradeOpenOnly bool

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeListCmd, tradeShowCmd, tradeExecsCmd, tradeForExecCmd)

	tradeListCmd.Flags().BoolVar(&tradeOpenOnly, "open", false, "only open trades")
}

func runTradeList(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	var trades []*ledger.Trade
	if tradeOpenOnly {
		trades, err = led.OpenTrades(ctx)
	} else {
		trades, err = led.Trades(ctx)
	}
	if err != nil {
		return err
	}

	printTrades(trades)
	return nil
}

func printTrades(trades []*ledger.Trade) {
	fmt.Printf("%-30s %-8s %-8s %-6s %12s %12s %12s %12s %12s %s\n",
		"ID", "BROKER", "SYMBOL", "SIDE", "QTY", "CLOSED", "AVG ENTRY", "AVG EXIT", "NET PNL", "STATUS")
	for _, t := range trades {
		avgExit, netPnL, status := "-", "-", "open"
		if !t.AverageExit.IsZero() {
			avgExit = t.AverageExit.String()
		}
		if t.Closed {
			netPnL = t.NetPnL.String()
			status = "closed"
		}
		fmt.Printf("%-30s %-8s %-8s %-6s %12s %12s %12s %12s %12s %s\n",
			t.ID, t.Broker, t.Symbol, t.Side, t.Quantity, t.ClosedQuantity,
			t.AverageEntry, avgExit, netPnL, status)
	}
}

func runTradeShow(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := led.Trade(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(journal.FormatTradeOrg(t))
	return nil
}

func runTradeExecs(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	execs, err := led.ExecutionsForTrade(context.Background(), args[0])
	if err != nil {
		return err
	}

	for _, e := range execs {
		fmt.Printf("%-28s %-5s %12s @ %-12s %s\n",
			e.ID, e.Side, e.Quantity, e.Price, e.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runTradeForExec(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := led.TradesForExecution(context.Background(), args[0])
	if err != nil {
		return err
	}

	printTrades(trades)
	return nil
}
