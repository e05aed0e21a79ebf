package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyRecord(code, name string, qty int64, price int64) TradeRecord {
	p := decimal.NewFromInt(price)
	return TradeRecord{
		SourceRef:      "vid-buy",
		AnalyzedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Sentiment:      SentimentUp,
		Action:         ActionBuyInverse,
		TradeType:      TradeBuy,
		InstrumentCode: code,
		InstrumentName: name,
		Quantity:       qty,
		UnitPrice:      p,
		GrossAmount:    p.Mul(decimal.NewFromInt(qty)),
	}
}

func sellRecord(profit, pct, runningPct float64) TradeRecord {
	return TradeRecord{
		SourceRef:         "vid-sell",
		Sentiment:         SentimentNeutral,
		Action:            ActionSellAll,
		TradeType:         TradeSell,
		RealizedProfit:    decimal.NewFromFloat(profit),
		RealizedProfitPct: decimal.NewFromFloat(pct),
		RunningReturnPct:  decimal.NewFromFloat(runningPct),
	}
}

func TestCurrentPositionEmptyLedger(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestCurrentPositionOpenAfterBuy(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))

	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, "114800", pos.InstrumentCode)
	assert.Equal(t, int64(100), pos.Quantity)
	assert.True(t, pos.BuyPrice.Equal(decimal.NewFromInt(10000)))
	assert.True(t, pos.BuyAmount.Equal(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, int64(1), pos.BuySeq)
}

func TestCurrentPositionClosedAfterSell(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	mustAppend(t, s, sellRecord(50_000, 5.0, 0.5))

	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestCurrentPositionLastBuyWins(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	mustAppend(t, s, sellRecord(50_000, 5.0, 0.5))
	mustAppend(t, s, buyRecord("069500", "KODEX 200", 40, 25000))

	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, "069500", pos.InstrumentCode)
	assert.Equal(t, int64(3), pos.BuySeq)
}

// Analysis-only rows after a BUY must not disturb the open position.
func TestCurrentPositionIgnoresAnalysisRows(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	mustAppend(t, s, testRecord(TradeNone))
	mustAppend(t, s, testRecord(TradeNone))

	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, "114800", pos.InstrumentCode)
}

func TestStrictRejectsOrphanedSell(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Strict(true))
	mustAppend(t, s, sellRecord(50_000, 5.0, 0.5))

	_, err := s.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrInconsistentLedger)

	_, err = s.PerformanceMetrics(context.Background())
	assert.ErrorIs(t, err, ErrInconsistentLedger)
}

func TestLenientToleratesOrphanedSell(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, sellRecord(50_000, 5.0, 0.5))

	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pos)

	m, err := s.PerformanceMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalTrades)
}

func TestPerformanceMetricsEmptyLedger(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	m, err := s.PerformanceMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0, m.WinningTrades)
	assert.Equal(t, 0, m.LosingTrades)
	assert.True(t, m.WinRate.IsZero())
	assert.True(t, m.CumulativeReturn.IsZero())
	assert.True(t, m.AvgReturnPerTrade.IsZero())
}

func TestPerformanceMetricsWinRate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	mustAppend(t, s, sellRecord(50_000, 5.0, 0.5))
	mustAppend(t, s, buyRecord("069500", "KODEX 200", 40, 25000))
	mustAppend(t, s, sellRecord(-20_000, -2.0, 0.3))

	m, err := s.PerformanceMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.True(t, m.WinRate.Equal(decimal.NewFromInt(50)), "win rate %s", m.WinRate)
	assert.True(t, m.AvgReturnPerTrade.Equal(decimal.NewFromFloat(1.5)), "avg return %s", m.AvgReturnPerTrade)
	assert.True(t, m.CumulativeReturn.Equal(decimal.NewFromFloat(0.3)))
}

// A break-even trade counts against the win rate.
func TestPerformanceMetricsZeroProfitIsLoss(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	mustAppend(t, s, sellRecord(0, 0, 0))

	m, err := s.PerformanceMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 0, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.True(t, m.WinRate.IsZero())
}

// Cumulative return reflects the latest row overall, even when it is not a
// SELL.
func TestPerformanceMetricsCumulativeFromLatestRow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	mustAppend(t, s, sellRecord(50_000, 5.0, 0.5))

	analysis := testRecord(TradeNone)
	analysis.RunningReturnPct = decimal.NewFromFloat(0.5)
	mustAppend(t, s, analysis)

	m, err := s.PerformanceMetrics(context.Background())
	require.NoError(t, err)
	assert.True(t, m.CumulativeReturn.Equal(decimal.NewFromFloat(0.5)))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, buyRecord("114800", "KODEX Inverse", 100, 10000))
	sell := sellRecord(50_000, 5.0, 0.5)
	sell.RunningBalance = decimal.NewFromInt(10_050_000)
	mustAppend(t, s, sell)
	mustAppend(t, s, buyRecord("069500", "KODEX 200", 40, 25000))

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Performance.TotalTrades)
	require.NotNil(t, sum.Position)
	assert.Equal(t, "069500", sum.Position.InstrumentCode)
	require.Len(t, sum.RecentTrades, 3)
	assert.Equal(t, int64(3), sum.RecentTrades[0].Seq)
	assert.False(t, sum.GeneratedAt.IsZero())
}

func TestSummaryRecentBounded(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for i := 0; i < summaryRecentLimit+5; i++ {
		mustAppend(t, s, testRecord(TradeNone))
	}

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.RecentTrades, summaryRecentLimit)
}
