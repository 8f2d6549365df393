// Package journal persists the execution/trade ledger in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/ledger"
)

const execCols = "seq, id, broker, instrument, symbol, side, quantity, lots, price, executed_at, locked"
const tradeCols = "id, broker, instrument, symbol, side, quantity, closed_quantity, average_entry, average_exit, entry_time, exit_time, pnl, fees, net_pnl, closed"
const linkCols = "trade_id, execution_id, override_quantity, all_trades_closed"

// SQLite implements ledger.Store on a single database file. Decimal values
// are stored as TEXT to avoid float rounding in the averages.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_loc=UTC")
	if err != nil {
		return nil, err
	}
	// One connection: reads queue behind an in-flight regeneration instead
	// of racing it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) Begin(ctx context.Context) (ledger.Tx, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(s rowScanner) (*ledger.Execution, error) {
	var e ledger.Execution
	var lots sql.NullString
	if err := s.Scan(
		&e.Seq, &e.ID, &e.Broker, &e.Instrument, &e.Symbol, &e.Side,
		&e.Quantity, &lots, &e.Price, &e.Timestamp, &e.Locked,
	); err != nil {
		return nil, err
	}
	if lots.Valid {
		d, err := decimal.NewFromString(lots.String)
		if err != nil {
			return nil, fmt.Errorf("execution %s: bad lots %q: %w", e.ID, lots.String, err)
		}
		e.Lots = d
	}
	return &e, nil
}

func scanTrade(s rowScanner) (*ledger.Trade, error) {
	var t ledger.Trade
	var avgExit sql.NullString
	var exitTime sql.NullTime
	if err := s.Scan(
		&t.ID, &t.Broker, &t.Instrument, &t.Symbol, &t.Side,
		&t.Quantity, &t.ClosedQuantity, &t.AverageEntry, &avgExit,
		&t.EntryTime, &exitTime, &t.PnL, &t.Fees, &t.NetPnL, &t.Closed,
	); err != nil {
		return nil, err
	}
	if avgExit.Valid {
		d, err := decimal.NewFromString(avgExit.String)
		if err != nil {
			return nil, fmt.Errorf("trade %s: bad average exit %q: %w", t.ID, avgExit.String, err)
		}
		t.AverageExit = d
	}
	if exitTime.Valid {
		t.ExitTime = exitTime.Time
	}
	return &t, nil
}

func scanLink(s rowScanner) (*ledger.Link, error) {
	var l ledger.Link
	var override sql.NullString
	if err := s.Scan(&l.TradeID, &l.ExecutionID, &override, &l.AllTradesClosed); err != nil {
		return nil, err
	}
	if override.Valid {
		d, err := decimal.NewFromString(override.String)
		if err != nil {
			return nil, fmt.Errorf("link %s/%s: bad override %q: %w", l.TradeID, l.ExecutionID, override.String, err)
		}
		l.OverrideQuantity = &d
	}
	return &l, nil
}

// nullDec maps a zero decimal to NULL; zero means "not set" for the nullable
// columns (lots, average_exit).
func nullDec(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func (j *SQLite) Execution(ctx context.Context, id string) (*ledger.Execution, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+execCols+` FROM executions WHERE id = ?`, id)
	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution %q: %w", id, ledger.ErrExecutionNotFound)
	}
	return e, err
}

func (j *SQLite) Executions(ctx context.Context) ([]*ledger.Execution, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+execCols+` FROM executions ORDER BY executed_at, seq`)
	if err != nil {
		return nil, err
	}
	return collectExecutions(rows)
}

func (j *SQLite) Trade(ctx context.Context, id string) (*ledger.Trade, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+tradeCols+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trade %q: %w", id, ledger.ErrTradeNotFound)
	}
	return t, err
}

func (j *SQLite) Trades(ctx context.Context) ([]*ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+tradeCols+` FROM trades ORDER BY entry_time, id`)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func (j *SQLite) OpenTrades(ctx context.Context) ([]*ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+tradeCols+` FROM trades WHERE closed = 0 ORDER BY entry_time, id`)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func (j *SQLite) Links(ctx context.Context) ([]*ledger.Link, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+linkCols+` FROM trade_executions ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (j *SQLite) TradesForExecution(ctx context.Context, executionID string) ([]*ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+prefixCols("t.", tradeCols)+`
		FROM trades t
		JOIN trade_executions te ON te.trade_id = t.id
		WHERE te.execution_id = ?
		ORDER BY t.entry_time, t.id`, executionID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func (j *SQLite) ExecutionsForTrade(ctx context.Context, tradeID string) ([]*ledger.Execution, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+prefixCols("e.", execCols)+`
		FROM executions e
		JOIN trade_executions te ON te.execution_id = e.id
		WHERE te.trade_id = ?
		ORDER BY e.executed_at, e.seq`, tradeID)
	if err != nil {
		return nil, err
	}
	return collectExecutions(rows)
}

func collectExecutions(rows *sql.Rows) ([]*ledger.Execution, error) {
	defer rows.Close()
	var out []*ledger.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func collectTrades(rows *sql.Rows) ([]*ledger.Trade, error) {
	defer rows.Close()
	var out []*ledger.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// sqliteTx implements ledger.Tx over one sql.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

func (s *sqliteTx) Commit() error { return s.tx.Commit() }

func (s *sqliteTx) Rollback() error {
	err := s.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (s *sqliteTx) InsertExecution(e *ledger.Execution) (int64, error) {
	res, err := s.tx.Exec(`
		INSERT INTO executions (id, broker, instrument, symbol, side, quantity, lots, price, executed_at, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Broker, e.Instrument, e.Symbol, string(e.Side),
		e.Quantity, nullDec(e.Lots), e.Price, e.Timestamp.UTC(), e.Locked,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteTx) UpdateExecution(e *ledger.Execution) error {
	res, err := s.tx.Exec(`
		UPDATE executions
		SET broker = ?, instrument = ?, symbol = ?, side = ?, quantity = ?, lots = ?, price = ?, executed_at = ?, locked = ?
		WHERE id = ?`,
		e.Broker, e.Instrument, e.Symbol, string(e.Side),
		e.Quantity, nullDec(e.Lots), e.Price, e.Timestamp.UTC(), e.Locked, e.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("execution %q: %w", e.ID, ledger.ErrExecutionNotFound)
	}
	return nil
}

func (s *sqliteTx) DeleteExecution(id string) error {
	res, err := s.tx.Exec(`DELETE FROM executions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("execution %q: %w", id, ledger.ErrExecutionNotFound)
	}
	return nil
}

func (s *sqliteTx) GetExecution(id string) (*ledger.Execution, error) {
	row := s.tx.QueryRow(`SELECT `+execCols+` FROM executions WHERE id = ?`, id)
	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution %q: %w", id, ledger.ErrExecutionNotFound)
	}
	return e, err
}

func (s *sqliteTx) LatestCheckpointBefore(ts time.Time, seq int64) (*ledger.Execution, error) {
	row := s.tx.QueryRow(`
		SELECT `+prefixCols("e.", execCols)+`
		FROM executions e
		JOIN trade_executions te ON te.execution_id = e.id
		WHERE te.all_trades_closed = 1
		  AND (e.executed_at < ? OR (e.executed_at = ? AND e.seq < ?))
		ORDER BY e.executed_at DESC, e.seq DESC
		LIMIT 1`, ts.UTC(), ts.UTC(), seq)
	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *sqliteTx) ExecutionsSince(checkpoint *ledger.Execution) ([]*ledger.Execution, error) {
	q := `SELECT ` + execCols + ` FROM executions`
	var args []any
	if checkpoint != nil {
		q += ` WHERE executed_at > ? OR (executed_at = ? AND seq > ?)`
		args = append(args, checkpoint.Timestamp.UTC(), checkpoint.Timestamp.UTC(), checkpoint.Seq)
	}
	q += ` ORDER BY executed_at, seq`

	rows, err := s.tx.Query(q, args...)
	if err != nil {
		return nil, err
	}
	return collectExecutions(rows)
}

func (s *sqliteTx) TradeIDsSince(checkpoint *ledger.Execution) ([]string, error) {
	q := `SELECT id FROM trades`
	var args []any
	if checkpoint != nil {
		q = `
			SELECT DISTINCT te.trade_id
			FROM trade_executions te
			JOIN executions e ON e.id = te.execution_id
			WHERE e.executed_at > ? OR (e.executed_at = ? AND e.seq > ?)`
		args = append(args, checkpoint.Timestamp.UTC(), checkpoint.Timestamp.UTC(), checkpoint.Seq)
	}

	rows, err := s.tx.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *sqliteTx) InsertTrade(t *ledger.Trade) error {
	_, err := s.tx.Exec(`
		INSERT INTO trades (`+tradeCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Broker, t.Instrument, t.Symbol, string(t.Side),
		t.Quantity, t.ClosedQuantity, t.AverageEntry, nullDec(t.AverageExit),
		t.EntryTime.UTC(), nullTime(t.ExitTime), t.PnL, t.Fees, t.NetPnL, t.Closed,
	)
	return err
}

func (s *sqliteTx) DeleteTrade(id string) error {
	if _, err := s.tx.Exec(`DELETE FROM trade_executions WHERE trade_id = ?`, id); err != nil {
		return err
	}
	_, err := s.tx.Exec(`DELETE FROM trades WHERE id = ?`, id)
	return err
}

func (s *sqliteTx) InsertLink(l *ledger.Link) error {
	var override any
	if l.OverrideQuantity != nil {
		override = *l.OverrideQuantity
	}
	_, err := s.tx.Exec(`
		INSERT INTO trade_executions (`+linkCols+`)
		VALUES (?, ?, ?, ?)`,
		l.TradeID, l.ExecutionID, override, l.AllTradesClosed,
	)
	return err
}

// prefixCols qualifies a comma-separated column list with a table alias.
func prefixCols(prefix, cols string) string {
	return prefix + strings.ReplaceAll(cols, ", ", ", "+prefix)
}
