package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInconsistentLedger is returned by strict-mode derivations when a SELL
// row has no antecedent BUY.
var ErrInconsistentLedger = errors.New("ledger: SELL row with no antecedent BUY")

var hundred = decimal.NewFromInt(100)

// CurrentPosition reconstructs the open position from the ledger, if any.
// Last-BUY-wins: the most recent BUY row opens the position, and any later
// SELL row closes it. The ledger is strictly single-position, so a SELL is
// never matched against a specific BUY by instrument. Returns (nil, nil)
// when no position is open.
//
// All reads run in one read transaction, so the result reflects a single
// committed ledger state.
func (s *Store) CurrentPosition(ctx context.Context) (*Position, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("starting read snapshot: %w", err)
	}
	defer tx.Rollback()

	pos, err := currentPosition(ctx, tx, s.strict)
	if err != nil {
		return nil, err
	}
	return pos, tx.Commit()
}

func currentPosition(ctx context.Context, tx *sql.Tx, strict bool) (*Position, error) {
	if strict {
		if err := checkAntecedentBuys(ctx, tx); err != nil {
			return nil, err
		}
	}

	var (
		pos        Position
		price, amt string
	)
	err := tx.QueryRowContext(ctx, `
		SELECT seq, instrument_code, instrument_name, quantity, unit_price, gross_amount, analyzed_at
		FROM trades
		WHERE trade_type = 'BUY'
		ORDER BY seq DESC
		LIMIT 1`).Scan(&pos.BuySeq, &pos.InstrumentCode, &pos.InstrumentName,
		&pos.Quantity, &price, &amt, &pos.BuyAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last BUY: %w", err)
	}

	// A SELL after the last BUY means the position has been closed.
	var sells int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trades WHERE trade_type = 'SELL' AND seq > ?`, pos.BuySeq).Scan(&sells)
	if err != nil {
		return nil, fmt.Errorf("counting closing SELLs: %w", err)
	}
	if sells > 0 {
		return nil, nil
	}

	if pos.BuyPrice, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if pos.BuyAmount, err = parseDecimal(amt); err != nil {
		return nil, err
	}
	return &pos, nil
}

// checkAntecedentBuys flags any SELL row that precedes the first BUY.
func checkAntecedentBuys(ctx context.Context, tx *sql.Tx) error {
	var orphaned int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trades
		WHERE trade_type = 'SELL'
		AND seq < COALESCE((SELECT MIN(seq) FROM trades WHERE trade_type = 'BUY'), seq + 1)`).Scan(&orphaned)
	if err != nil {
		return fmt.Errorf("checking ledger consistency: %w", err)
	}
	if orphaned > 0 {
		return fmt.Errorf("%w (%d orphaned SELL rows)", ErrInconsistentLedger, orphaned)
	}
	return nil
}

// PerformanceMetrics aggregates all SELL rows into win/loss statistics.
// A realized profit of exactly zero counts as a losing trade; that tie
// policy is deliberate, not an oversight. The cumulative return comes from
// the most recent row overall, not just SELL rows.
func (s *Store) PerformanceMetrics(ctx context.Context) (Metrics, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Metrics{}, fmt.Errorf("starting read snapshot: %w", err)
	}
	defer tx.Rollback()

	m, err := performanceMetrics(ctx, tx, s.strict)
	if err != nil {
		return Metrics{}, err
	}
	return m, tx.Commit()
}

func performanceMetrics(ctx context.Context, tx *sql.Tx, strict bool) (Metrics, error) {
	if strict {
		if err := checkAntecedentBuys(ctx, tx); err != nil {
			return Metrics{}, err
		}
	}

	m := Metrics{
		WinRate:           decimal.Zero,
		CumulativeReturn:  decimal.Zero,
		AvgReturnPerTrade: decimal.Zero,
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT realized_profit, realized_profit_pct
		FROM trades
		WHERE trade_type = 'SELL'
		ORDER BY seq ASC`)
	if err != nil {
		return Metrics{}, fmt.Errorf("querying SELL rows: %w", err)
	}
	defer rows.Close()

	pctSum := decimal.Zero
	for rows.Next() {
		var profitRaw, pctRaw string
		if err := rows.Scan(&profitRaw, &pctRaw); err != nil {
			return Metrics{}, fmt.Errorf("scanning SELL row: %w", err)
		}
		profit, err := parseDecimal(profitRaw)
		if err != nil {
			return Metrics{}, err
		}
		pct, err := parseDecimal(pctRaw)
		if err != nil {
			return Metrics{}, err
		}

		m.TotalTrades++
		if profit.IsPositive() {
			m.WinningTrades++
		} else {
			m.LosingTrades++
		}
		pctSum = pctSum.Add(pct)
	}
	if err := rows.Err(); err != nil {
		return Metrics{}, err
	}

	if m.TotalTrades > 0 {
		trades := decimal.NewFromInt(int64(m.TotalTrades))
		m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).Div(trades).Mul(hundred)
		m.AvgReturnPerTrade = pctSum.Div(trades)
	}

	var returnRaw string
	err = tx.QueryRowContext(ctx, `
		SELECT running_return_pct FROM trades ORDER BY seq DESC LIMIT 1`).Scan(&returnRaw)
	if err != nil && err != sql.ErrNoRows {
		return Metrics{}, fmt.Errorf("querying latest return: %w", err)
	}
	if err == nil {
		if m.CumulativeReturn, err = parseDecimal(returnRaw); err != nil {
			return Metrics{}, err
		}
	}
	return m, nil
}

// summaryRecentLimit bounds the trade list in the dashboard summary.
const summaryRecentLimit = 20

// Summary assembles the dashboard view: performance metrics, the most
// recent trades, the open position, and the latest balance, all from one
// read snapshot.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Summary{}, fmt.Errorf("starting read snapshot: %w", err)
	}
	defer tx.Rollback()

	metrics, err := performanceMetrics(ctx, tx, s.strict)
	if err != nil {
		return Summary{}, err
	}
	pos, err := currentPosition(ctx, tx, false) // strict already checked above
	if err != nil {
		return Summary{}, err
	}
	recent, err := s.queryRecords(ctx, tx, `
		SELECT `+recordColumns+` FROM trades ORDER BY seq DESC LIMIT ?`, summaryRecentLimit)
	if err != nil {
		return Summary{}, err
	}

	balance := decimal.Zero
	var raw string
	err = tx.QueryRowContext(ctx, `
		SELECT running_balance FROM trades ORDER BY seq DESC LIMIT 1`).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return Summary{}, fmt.Errorf("querying latest balance: %w", err)
	}
	if err == nil {
		if balance, err = parseDecimal(raw); err != nil {
			return Summary{}, err
		}
	}

	sum := Summary{
		Performance:   metrics,
		RecentTrades:  recent,
		Position:      pos,
		LatestBalance: balance,
		GeneratedAt:   time.Now().UTC(),
	}
	return sum, tx.Commit()
}
