package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Store is the append-only ledger backed by SQLite. Rows are never updated
// or deleted; corrections are made by appending new rows.
type Store struct {
	db     *sql.DB
	strict bool
}

// Option configures a Store at Open time.
type Option func(*Store)

// Strict makes derivations fail with ErrInconsistentLedger when they
// encounter a SELL with no antecedent BUY, instead of tolerating it.
func Strict(on bool) Option {
	return func(s *Store) { s.strict = on }
}

func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Run schema migration
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append assigns the next sequence number and persists the record. The
// insert is a single statement, so it is all-or-nothing: either the full
// row is durable or nothing is. On success the assigned sequence id is set
// on the record and returned.
func (s *Store) Append(ctx context.Context, r *TradeRecord) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (
			source_ref, source_title, source_url, analyzed_at,
			sentiment, reasoning, action,
			trade_type, instrument_code, instrument_name, quantity, unit_price, gross_amount,
			realized_profit, realized_profit_pct, running_balance, running_return_pct,
			notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SourceRef, r.SourceTitle, r.SourceURL, r.AnalyzedAt,
		string(r.Sentiment), r.Reasoning, string(r.Action),
		string(r.TradeType), r.InstrumentCode, r.InstrumentName, r.Quantity,
		r.UnitPrice.String(), r.GrossAmount.String(),
		r.RealizedProfit.String(), r.RealizedProfitPct.String(),
		r.RunningBalance.String(), r.RunningReturnPct.String(),
		r.Notes, r.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("appending trade record: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading assigned sequence: %w", err)
	}
	r.Seq = seq
	return seq, nil
}

// LatestBalance returns running_balance of the highest-sequence row, or
// decimal zero when the ledger is empty. Substituting initial capital for
// the zero value is the calling strategy's policy, not the store's.
func (s *Store) LatestBalance(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT running_balance FROM trades ORDER BY seq DESC LIMIT 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying latest balance: %w", err)
	}
	return parseDecimal(raw)
}

// Recent returns up to limit records, most recent first. limit must be
// positive; a ledger shorter than limit returns fewer rows, never an error.
func (s *Store) Recent(ctx context.Context, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return s.queryRecords(ctx, s.db, `
		SELECT `+recordColumns+` FROM trades ORDER BY seq DESC LIMIT ?`, limit)
}

// SellRows returns all SELL rows ascending by sequence.
func (s *Store) SellRows(ctx context.Context) ([]TradeRecord, error) {
	return s.queryRecords(ctx, s.db, `
		SELECT `+recordColumns+` FROM trades WHERE trade_type = 'SELL' ORDER BY seq ASC`)
}

const recordColumns = `seq, source_ref, source_title, source_url, analyzed_at,
	sentiment, reasoning, action,
	trade_type, instrument_code, instrument_name, quantity, unit_price, gross_amount,
	realized_profit, realized_profit_pct, running_balance, running_return_pct,
	notes, created_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) queryRecords(ctx context.Context, q querier, query string, args ...any) ([]TradeRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trade records: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (TradeRecord, error) {
	var (
		rec                              TradeRecord
		sentiment, action, tradeType     string
		unitPrice, grossAmount           string
		realizedProfit, realizedPct      string
		runningBalance, runningReturnPct string
	)
	err := rows.Scan(
		&rec.Seq, &rec.SourceRef, &rec.SourceTitle, &rec.SourceURL, &rec.AnalyzedAt,
		&sentiment, &rec.Reasoning, &action,
		&tradeType, &rec.InstrumentCode, &rec.InstrumentName, &rec.Quantity,
		&unitPrice, &grossAmount,
		&realizedProfit, &realizedPct, &runningBalance, &runningReturnPct,
		&rec.Notes, &rec.CreatedAt,
	)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("scanning trade record: %w", err)
	}

	rec.Sentiment = Sentiment(sentiment)
	rec.Action = Action(action)
	rec.TradeType = TradeType(tradeType)

	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{unitPrice, &rec.UnitPrice},
		{grossAmount, &rec.GrossAmount},
		{realizedProfit, &rec.RealizedProfit},
		{realizedPct, &rec.RealizedProfitPct},
		{runningBalance, &rec.RunningBalance},
		{runningReturnPct, &rec.RunningReturnPct},
	}
	for _, f := range fields {
		d, err := parseDecimal(f.raw)
		if err != nil {
			return TradeRecord{}, err
		}
		*f.dst = d
	}
	return rec, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing stored decimal %q: %w", raw, err)
	}
	return d, nil
}
