package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/ledger"
)

var base = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j
}

func begin(t *testing.T, j *SQLite) ledger.Tx {
	t.Helper()
	tx, err := j.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func testExec(id string, minutes int) *ledger.Execution {
	return &ledger.Execution{
		ID:         id,
		Broker:     "ibkr",
		Instrument: "future",
		Symbol:     "NQ",
		Quantity:   decimal.RequireFromString("12.5"),
		Side:       ledger.Buy,
		Price:      decimal.RequireFromString("1010.25"),
		Timestamp:  base.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	rows, err := j.db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('executions','trades','trade_executions')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["executions"])
	assert.True(t, found["trades"])
	assert.True(t, found["trade_executions"])
}

func TestExecutionRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	ctx := context.Background()

	e := testExec("E1", 1)
	e.Lots = decimal.RequireFromString("2")
	e.Locked = true

	tx := begin(t, j)
	seq, err := tx.InsertExecution(e)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	require.NoError(t, tx.Commit())

	got, err := j.Execution(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, e.Broker, got.Broker)
	assert.Equal(t, e.Symbol, got.Symbol)
	assert.Equal(t, ledger.Buy, got.Side)
	assert.True(t, got.Quantity.Equal(e.Quantity))
	assert.True(t, got.Lots.Equal(e.Lots))
	assert.True(t, got.Price.Equal(e.Price))
	assert.True(t, got.Timestamp.Equal(e.Timestamp))
	assert.True(t, got.Locked)
}

func TestExecutionNullableLots(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	_, err := tx.InsertExecution(testExec("E1", 1))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	got, err := j.Execution(context.Background(), "E1")
	require.NoError(t, err)
	assert.True(t, got.Lots.IsZero())
	assert.False(t, got.Locked)
}

func TestExecutionSeqOrdersTimestampTies(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	// Same timestamp: insertion order must win.
	tx := begin(t, j)
	a := testExec("A", 1)
	b := testExec("B", 1)
	_, err := tx.InsertExecution(a)
	require.NoError(t, err)
	_, err = tx.InsertExecution(b)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	execs, err := j.Executions(context.Background())
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, "A", execs[0].ID)
	assert.Equal(t, "B", execs[1].ID)
}

func TestUpdateExecutionNotFound(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	defer tx.Rollback()

	err := tx.UpdateExecution(testExec("nope", 1))
	assert.ErrorIs(t, err, ledger.ErrExecutionNotFound)
}

func TestDeleteExecutionNotFound(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	defer tx.Rollback()

	err := tx.DeleteExecution("nope")
	assert.ErrorIs(t, err, ledger.ErrExecutionNotFound)
}

func TestTradeRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	ctx := context.Background()

	open := &ledger.Trade{
		ID: "T-E1", Broker: "ibkr", Instrument: "future", Symbol: "NQ",
		Side:           ledger.Long,
		Quantity:       decimal.RequireFromString("100"),
		ClosedQuantity: decimal.Zero,
		AverageEntry:   decimal.RequireFromString("12.5"),
		EntryTime:      base,
		PnL:            decimal.Zero, Fees: decimal.Zero, NetPnL: decimal.Zero,
	}
	closed := &ledger.Trade{
		ID: "T-E2", Broker: "ibkr", Instrument: "future", Symbol: "ES",
		Side:           ledger.Short,
		Quantity:       decimal.RequireFromString("50"),
		ClosedQuantity: decimal.RequireFromString("50"),
		AverageEntry:   decimal.RequireFromString("4000"),
		AverageExit:    decimal.RequireFromString("3990"),
		EntryTime:      base,
		ExitTime:       base.Add(time.Hour),
		PnL:            decimal.RequireFromString("500"),
		Fees:           decimal.RequireFromString("4"),
		NetPnL:         decimal.RequireFromString("496"),
		Closed:         true,
	}

	tx := begin(t, j)
	require.NoError(t, tx.InsertTrade(open))
	require.NoError(t, tx.InsertTrade(closed))
	require.NoError(t, tx.Commit())

	gotOpen, err := j.Trade(ctx, "T-E1")
	require.NoError(t, err)
	assert.False(t, gotOpen.Closed)
	assert.True(t, gotOpen.AverageExit.IsZero())
	assert.True(t, gotOpen.ExitTime.IsZero())

	gotClosed, err := j.Trade(ctx, "T-E2")
	require.NoError(t, err)
	assert.True(t, gotClosed.Closed)
	assert.True(t, gotClosed.AverageExit.Equal(closed.AverageExit))
	assert.True(t, gotClosed.ExitTime.Equal(closed.ExitTime))
	assert.True(t, gotClosed.NetPnL.Equal(closed.NetPnL))

	openTrades, err := j.OpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, openTrades, 1)
	assert.Equal(t, "T-E1", openTrades[0].ID)

	_, err = j.Trade(ctx, "T-none")
	assert.ErrorIs(t, err, ledger.ErrTradeNotFound)
}

func TestLinkRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	ctx := context.Background()

	override := decimal.RequireFromString("150")
	tx := begin(t, j)
	require.NoError(t, tx.InsertLink(&ledger.Link{TradeID: "T-E1", ExecutionID: "E1"}))
	require.NoError(t, tx.InsertLink(&ledger.Link{
		TradeID: "T-E1", ExecutionID: "E2",
		OverrideQuantity: &override, AllTradesClosed: true,
	}))
	require.NoError(t, tx.Commit())

	links, err := j.Links(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Nil(t, links[0].OverrideQuantity)
	assert.False(t, links[0].AllTradesClosed)

	require.NotNil(t, links[1].OverrideQuantity)
	assert.True(t, links[1].OverrideQuantity.Equal(override))
	assert.True(t, links[1].AllTradesClosed)
}

func TestLatestCheckpointBefore(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	for i, flat := range []bool{true, false, true} {
		e := testExec([]string{"E1", "E2", "E3"}[i], i+1)
		_, err := tx.InsertExecution(e)
		require.NoError(t, err)
		require.NoError(t, tx.InsertLink(&ledger.Link{
			TradeID: "T-x", ExecutionID: e.ID, AllTradesClosed: flat,
		}))
	}
	require.NoError(t, tx.Commit())

	tx = begin(t, j)
	defer tx.Rollback()

	// Before E3: E3 itself is excluded, E2 is not flat, so E1 wins.
	cp, err := tx.LatestCheckpointBefore(base.Add(3*time.Minute), 3)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "E1", cp.ID)

	// After everything: E3 is the latest checkpoint.
	cp, err = tx.LatestCheckpointBefore(base.Add(time.Hour), 100)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "E3", cp.ID)

	// Before the first execution: no checkpoint at all.
	cp, err = tx.LatestCheckpointBefore(base.Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestExecutionsSince(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	var cp *ledger.Execution
	for i, id := range []string{"E1", "E2", "E3"} {
		e := testExec(id, i+1)
		seq, err := tx.InsertExecution(e)
		require.NoError(t, err)
		e.Seq = seq
		if id == "E1" {
			cp = e
		}
	}
	require.NoError(t, tx.Commit())

	tx = begin(t, j)
	defer tx.Rollback()

	all, err := tx.ExecutionsSince(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	after, err := tx.ExecutionsSince(cp)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "E2", after[0].ID)
	assert.Equal(t, "E3", after[1].ID)
}

func TestTradeIDsSince(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	var cp *ledger.Execution
	for i, id := range []string{"E1", "E2", "E3"} {
		e := testExec(id, i+1)
		seq, err := tx.InsertExecution(e)
		require.NoError(t, err)
		e.Seq = seq
		if id == "E1" {
			cp = e
		}
	}
	require.NoError(t, tx.InsertTrade(&ledger.Trade{
		ID: "T-E1", Broker: "ibkr", Symbol: "NQ", Side: ledger.Long,
		Quantity: decimal.NewFromInt(1), ClosedQuantity: decimal.Zero,
		AverageEntry: decimal.NewFromInt(1), EntryTime: base,
		PnL: decimal.Zero, Fees: decimal.Zero, NetPnL: decimal.Zero,
	}))
	require.NoError(t, tx.InsertTrade(&ledger.Trade{
		ID: "T-E2", Broker: "ibkr", Symbol: "ES", Side: ledger.Long,
		Quantity: decimal.NewFromInt(1), ClosedQuantity: decimal.Zero,
		AverageEntry: decimal.NewFromInt(1), EntryTime: base,
		PnL: decimal.Zero, Fees: decimal.Zero, NetPnL: decimal.Zero,
	}))
	require.NoError(t, tx.InsertLink(&ledger.Link{TradeID: "T-E1", ExecutionID: "E1"}))
	require.NoError(t, tx.InsertLink(&ledger.Link{TradeID: "T-E2", ExecutionID: "E2"}))
	require.NoError(t, tx.InsertLink(&ledger.Link{TradeID: "T-E2", ExecutionID: "E3"}))
	require.NoError(t, tx.Commit())

	tx = begin(t, j)
	defer tx.Rollback()

	all, err := tx.TradeIDsSince(nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"T-E1", "T-E2"}, all)

	after, err := tx.TradeIDsSince(cp)
	require.NoError(t, err)
	assert.Equal(t, []string{"T-E2"}, after)
}

func TestDeleteTradeCascadesLinks(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	require.NoError(t, tx.InsertTrade(&ledger.Trade{
		ID: "T-E1", Broker: "ibkr", Symbol: "NQ", Side: ledger.Long,
		Quantity: decimal.NewFromInt(1), ClosedQuantity: decimal.Zero,
		AverageEntry: decimal.NewFromInt(1), EntryTime: base,
		PnL: decimal.Zero, Fees: decimal.Zero, NetPnL: decimal.Zero,
	}))
	require.NoError(t, tx.InsertLink(&ledger.Link{TradeID: "T-E1", ExecutionID: "E1"}))
	require.NoError(t, tx.DeleteTrade("T-E1"))
	require.NoError(t, tx.Commit())

	ctx := context.Background()
	links, err := j.Links(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)

	trades, err := j.Trades(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestRollbackDiscardsEverything(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	tx := begin(t, j)
	_, err := tx.InsertExecution(testExec("E1", 1))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = j.Execution(context.Background(), "E1")
	assert.ErrorIs(t, err, ledger.ErrExecutionNotFound)
}
