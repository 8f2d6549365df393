package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/config"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/pkg/logx"
)

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "A personal trading journal with execution-level bookkeeping",
	Long: `Tradebook keeps a personal trading journal at the execution level.

Raw broker fills are recorded as executions; tradebook consolidates them into
round-trip trades with correct average prices, partial-close accounting, fees
and PnL. Editing or deleting a past execution regenerates only the affected
suffix of the trade ledger.

Commands:
  exec    - record, edit, delete and list executions
  trade   - inspect consolidated trades
  export  - export trades or executions to CSV
  config  - manage configuration`,
	SilenceUsage: true,
}

var (
	cfgFile string
	dbPath  string
	verbose bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./tradebook.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	if _, err := os.Stat("./tradebook.yaml"); err == nil {
		return config.LoadFromFile("./tradebook.yaml")
	}
	return config.Default(), nil
}

// openLedger wires the store, fee schedule and logger together. The caller
// must Close the returned journal.
func openLedger() (*ledger.Ledger, *journal.SQLite, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	path := cfg.Journal.DBPath
	if dbPath != "" {
		path = dbPath
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal db: %w", err)
	}

	log, err := logx.New(verbose)
	if err != nil {
		j.Close()
		return nil, nil, err
	}

	led := ledger.Open(j,
		ledger.WithCalculator(cfg.FeeSchedule()),
		ledger.WithLogger(log),
	)
	return led, j, nil
}
