package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/pkg/id"
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Record, edit, delete and list executions",
	Long: `Manage the raw execution history.

Every mutation re-consolidates the affected suffix of the trade ledger.

Examples:
  tradebook exec add -b ibkr -s NQ --side sell --qty 150 --price 1010
  tradebook exec edit 01J... --price 1015
  tradebook exec rm 01J...
  tradebook exec lock 01J...`,
}

var execAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new execution",
	Args:  cobra.NoArgs,
	RunE:  runExecAdd,
}

var execEditCmd = &cobra.Command{
	Use:   "edit <execution-id>",
	Short: "Edit an execution and regenerate affected trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecEdit,
}

var execRmCmd = &cobra.Command{
	Use:   "rm <execution-id>",
	Short: "Delete an execution and regenerate affected trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecRm,
}

var execLockCmd = &cobra.Command{
	Use:   "lock <execution-id>",
	Short: "Lock an execution against edit and delete",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setLocked(args[0], true) },
}

var execUnlockCmd = &cobra.Command{
	Use:   "unlock <execution-id>",
	Short: "Unlock an execution",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setLocked(args[0], false) },
}

var execListCmd = &cobra.Command{
	Use:   "list",
	Short: "List executions in timeline order",
	Args:  cobra.NoArgs,
	RunE:  runExecList,
}

var (
	execBroker     string
	execInstrument string
	execSymbol     string
	execSide       string
	execQty        string
	execLots       string
	execPrice      string
	execTime       string
	execID         string
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.AddCommand(execAddCmd, execEditCmd, execRmCmd, execLockCmd, execUnlockCmd, execListCmd)

	for _, c := range []*cobra.Command{execAddCmd, execEditCmd} {
		c.Flags().StringVarP(&execBroker, "broker", "b", "", "broker name")
		c.Flags().StringVarP(&execInstrument, "instrument", "i", "", "instrument type (stock, future, option, ...)")
		c.Flags().StringVarP(&execSymbol, "symbol", "s", "", "traded symbol")
		c.Flags().StringVar(&execSide, "side", "", "buy or sell")
		c.Flags().StringVar(&execQty, "qty", "", "executed quantity")
		c.Flags().StringVar(&execLots, "lots", "", "broker lot count (optional)")
		c.Flags().StringVar(&execPrice, "price", "", "execution price")
		c.Flags().StringVar(&execTime, "time", "", "execution time, RFC3339 (default now)")
	}
	execAddCmd.Flags().StringVar(&execID, "id", "", "execution id (default: generated ULID)")
}

func runExecAdd(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	e := ledger.Execution{
		ID:         execID,
		Broker:     execBroker,
		Instrument: execInstrument,
		Symbol:     execSymbol,
		Side:       ledger.Side(execSide),
		Timestamp:  time.Now().UTC(),
	}
	if e.ID == "" {
		e.ID = id.New()
	}
	if err := applyExecFlags(cmd, &e); err != nil {
		return err
	}

	eid, err := led.Add(context.Background(), e)
	if err != nil {
		return err
	}
	fmt.Println(eid)
	return nil
}

func runExecEdit(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	cur, err := led.Execution(context.Background(), args[0])
	if err != nil {
		return err
	}

	// Start from the stored execution and overlay only the flags that were
	// actually set.
	e := *cur
	if cmd.Flags().Changed("broker") {
		e.Broker = execBroker
	}
	if cmd.Flags().Changed("instrument") {
		e.Instrument = execInstrument
	}
	if cmd.Flags().Changed("symbol") {
		e.Symbol = execSymbol
	}
	if cmd.Flags().Changed("side") {
		e.Side = ledger.Side(execSide)
	}
	if err := applyExecFlags(cmd, &e); err != nil {
		return err
	}

	return led.Edit(context.Background(), e)
}

// applyExecFlags parses the decimal and time flags into e.
func applyExecFlags(cmd *cobra.Command, e *ledger.Execution) error {
	if cmd.Flags().Changed("qty") {
		d, err := decimal.NewFromString(execQty)
		if err != nil {
			return fmt.Errorf("qty: %w", err)
		}
		e.Quantity = d
	}
	if cmd.Flags().Changed("price") {
		d, err := decimal.NewFromString(execPrice)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		e.Price = d
	}
	if cmd.Flags().Changed("lots") {
		d, err := decimal.NewFromString(execLots)
		if err != nil {
			return fmt.Errorf("lots: %w", err)
		}
		e.Lots = d
	}
	if cmd.Flags().Changed("time") {
		ts, err := time.Parse(time.RFC3339, execTime)
		if err != nil {
			return fmt.Errorf("time: %w", err)
		}
		e.Timestamp = ts
	}
	return nil
}

func runExecRm(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	return led.Delete(context.Background(), args[0])
}

func setLocked(execution string, locked bool) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	return led.SetLocked(context.Background(), execution, locked)
}

func runExecList(cmd *cobra.Command, args []string) error {
	led, j, err := openLedger()
	if err != nil {
		return err
	}
	defer j.Close()

	execs, err := led.Executions(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%-28s %-8s %-8s %-5s %12s %12s %-20s %s\n",
		"ID", "BROKER", "SYMBOL", "SIDE", "QTY", "PRICE", "TIME", "LOCKED")
	for _, e := range execs {
		locked := ""
		if e.Locked {
			locked = "locked"
		}
		fmt.Printf("%-28s %-8s %-8s %-5s %12s %12s %-20s %s\n",
			e.ID, e.Broker, e.Symbol, e.Side, e.Quantity, e.Price,
			e.Timestamp.UTC().Format("2006-01-02 15:04:05"), locked)
	}
	return nil
}
