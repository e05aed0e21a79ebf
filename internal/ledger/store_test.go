package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trades.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testRecord builds a minimal row of the given trade type. Decimal fields
// that matter to a test are overridden by the caller.
func testRecord(tt TradeType) TradeRecord {
	return TradeRecord{
		SourceRef:  "vid-1",
		AnalyzedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Sentiment:  SentimentUp,
		Action:     ActionBuyInverse,
		TradeType:  tt,
	}
}

func mustAppend(t *testing.T, s *Store, r TradeRecord) TradeRecord {
	t.Helper()

	_, err := s.Append(context.Background(), &r)
	require.NoError(t, err)
	return r
}

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	first := mustAppend(t, s, testRecord(TradeBuy))
	second := mustAppend(t, s, testRecord(TradeSell))

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
}

func TestAppendSetsCreatedAt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	rec := testRecord(TradeNone)
	_, err := s.Append(context.Background(), &rec)
	require.NoError(t, err)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestAppendRoundTripsDecimals(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	rec := testRecord(TradeSell)
	rec.InstrumentCode = "114800"
	rec.InstrumentName = "KODEX Inverse"
	rec.Quantity = 100
	rec.UnitPrice = decimal.NewFromInt(10500)
	rec.GrossAmount = decimal.NewFromInt(1_050_000)
	rec.RealizedProfit = decimal.NewFromInt(50_000)
	rec.RealizedProfitPct = decimal.NewFromFloat(5.0)
	rec.RunningBalance = decimal.NewFromInt(10_050_000)
	rec.RunningReturnPct = decimal.NewFromFloat(0.5)
	mustAppend(t, s, rec)

	got, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "114800", got[0].InstrumentCode)
	assert.Equal(t, int64(100), got[0].Quantity)
	assert.True(t, got[0].UnitPrice.Equal(decimal.NewFromInt(10500)))
	assert.True(t, got[0].RealizedProfit.Equal(decimal.NewFromInt(50_000)))
	assert.True(t, got[0].RealizedProfitPct.Equal(decimal.NewFromFloat(5.0)))
	assert.True(t, got[0].RunningBalance.Equal(decimal.NewFromInt(10_050_000)))
}

func TestLatestBalanceEmptyLedger(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	balance, err := s.LatestBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestLatestBalanceTakesHighestSeq(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	first := testRecord(TradeBuy)
	first.RunningBalance = decimal.NewFromInt(10_000_000)
	mustAppend(t, s, first)

	second := testRecord(TradeSell)
	second.RunningBalance = decimal.NewFromInt(10_050_000)
	mustAppend(t, s, second)

	balance, err := s.LatestBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10_050_000)))
}

func TestRecentRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Recent(context.Background(), 0)
	assert.Error(t, err)
	_, err = s.Recent(context.Background(), -3)
	assert.Error(t, err)
}

func TestRecentNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		mustAppend(t, s, testRecord(TradeNone))
	}

	got, err := s.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(5), got[0].Seq)
	assert.Equal(t, int64(4), got[1].Seq)
	assert.Equal(t, int64(3), got[2].Seq)
}

func TestRecentShortLedgerReturnsFewer(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, testRecord(TradeBuy))

	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSellRowsAscending(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	mustAppend(t, s, testRecord(TradeBuy))
	mustAppend(t, s, testRecord(TradeSell))
	mustAppend(t, s, testRecord(TradeBuy))
	mustAppend(t, s, testRecord(TradeSell))

	got, err := s.SellRows(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Seq)
	assert.Equal(t, int64(4), got[1].Seq)
	for _, r := range got {
		assert.Equal(t, TradeSell, r.TradeType)
	}
}
