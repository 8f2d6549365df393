// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS executions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	broker TEXT NOT NULL,
	instrument TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	lots TEXT,
	price TEXT NOT NULL,
	executed_at DATETIME NOT NULL,
	locked INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(executed_at, seq);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	broker TEXT NOT NULL,
	instrument TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	closed_quantity TEXT NOT NULL,
	average_entry TEXT NOT NULL,
	average_exit TEXT,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME,
	pnl TEXT NOT NULL,
	fees TEXT NOT NULL,
	net_pnl TEXT NOT NULL,
	closed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_open ON trades(broker, symbol, closed);

CREATE TABLE IF NOT EXISTS trade_executions (
	trade_id TEXT NOT NULL,
	execution_id TEXT NOT NULL,
	override_quantity TEXT,
	all_trades_closed INTEGER NOT NULL,
	PRIMARY KEY (trade_id, execution_id)
);

CREATE INDEX IF NOT EXISTS idx_links_execution ON trade_executions(execution_id);
`
