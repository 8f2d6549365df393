package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal data to CSV",
	Long: `Export trades or the raw execution history to CSV.

Examples:
  tradebook export trades ./trades.csv
  tradebook export execs ./executions.csv`,
}

var exportTradesCmd = &cobra.Command{
	Use:   "trades <file>",
	Short: "Export the trade ledger to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportTrades,
}

var exportExecsCmd = &cobra.Command{
	Use:   "execs <file>",
	Short: "Export the execution history to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportExecs,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportTradesCmd, exportExecsCmd)
}

func runExportTrades(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := led.Trades(context.Background())
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if err := journal.WriteTradesCSV(f, trades); err != nil {
		return err
	}
	fmt.Printf("wrote %d trades to %s\n", len(trades), args[0])
	return nil
}

func runExportExecs(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	execs, err := led.Executions(context.Background())
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if err := journal.WriteExecutionsCSV(f, execs); err != nil {
		return err
	}
	fmt.Printf("wrote %d executions to %s\n", len(execs), args[0])
	return nil
}
