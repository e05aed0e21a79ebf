package ledger

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trades (
	seq                 INTEGER PRIMARY KEY AUTOINCREMENT,

	source_ref          TEXT NOT NULL,
	source_title        TEXT NOT NULL DEFAULT '',
	source_url          TEXT NOT NULL DEFAULT '',
	analyzed_at         DATETIME NOT NULL,

	sentiment           TEXT NOT NULL,
	reasoning           TEXT NOT NULL DEFAULT '',
	action              TEXT NOT NULL,

	trade_type          TEXT NOT NULL DEFAULT '',
	instrument_code     TEXT NOT NULL DEFAULT '',
	instrument_name     TEXT NOT NULL DEFAULT '',
	quantity            INTEGER NOT NULL DEFAULT 0,
	unit_price          TEXT NOT NULL DEFAULT '0',
	gross_amount        TEXT NOT NULL DEFAULT '0',

	realized_profit     TEXT NOT NULL DEFAULT '0',
	realized_profit_pct TEXT NOT NULL DEFAULT '0',
	running_balance     TEXT NOT NULL,
	running_return_pct  TEXT NOT NULL DEFAULT '0',

	notes               TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trades_source ON trades(source_ref);
CREATE INDEX IF NOT EXISTS idx_trades_type ON trades(trade_type);
`
