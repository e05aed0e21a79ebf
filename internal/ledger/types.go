package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sentiment is the directional bias extracted from one content item.
type Sentiment string

const (
	SentimentUp      Sentiment = "UP"
	SentimentDown    Sentiment = "DOWN"
	SentimentNeutral Sentiment = "NEUTRAL"
)

// Action is the contrarian action taken in response to a sentiment.
type Action string

const (
	ActionBuyInverse Action = "BUY_INVERSE"
	ActionBuyPrimary Action = "BUY_PRIMARY"
	ActionSellAll    Action = "SELL_ALL"
	ActionNone       Action = "NONE"
)

// TradeType tags a ledger row; empty means analysis-only, no executed trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
	TradeNone TradeType = ""
)

// TradeRecord is one row of the append-only ledger. Immutable once written;
// Seq is assigned by the store at append time and is the sole ordering key.
type TradeRecord struct {
	Seq         int64     `json:"seq"`
	SourceRef   string    `json:"source_ref"` // external event that triggered the record, not used for ordering
	SourceTitle string    `json:"source_title"`
	SourceURL   string    `json:"source_url"`
	AnalyzedAt  time.Time `json:"analyzed_at"`

	Sentiment Sentiment `json:"sentiment"`
	Reasoning string    `json:"reasoning"`
	Action    Action    `json:"action"`

	TradeType      TradeType       `json:"trade_type"`
	InstrumentCode string          `json:"instrument_code"`
	InstrumentName string          `json:"instrument_name"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`

	RealizedProfit    decimal.Decimal `json:"realized_profit"` // meaningful on SELL rows only
	RealizedProfitPct decimal.Decimal `json:"realized_profit_pct"`

	RunningBalance   decimal.Decimal `json:"running_balance"`    // account balance after this row
	RunningReturnPct decimal.Decimal `json:"running_return_pct"` // cumulative return vs initial capital

	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Position is the currently held instrument, reconstructed from the ledger.
type Position struct {
	InstrumentCode string          `json:"instrument_code"`
	InstrumentName string          `json:"instrument_name"`
	Quantity       int64           `json:"quantity"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	BuyAmount      decimal.Decimal `json:"buy_amount"`
	BuyAt          time.Time       `json:"buy_at"`
	BuySeq         int64           `json:"buy_seq"` // opening reference for realized profit computation
}

// Metrics aggregates all closed (SELL) trades.
type Metrics struct {
	TotalTrades       int             `json:"total_trades"`
	WinningTrades     int             `json:"winning_trades"`
	LosingTrades      int             `json:"losing_trades"`
	WinRate           decimal.Decimal `json:"win_rate"`
	CumulativeReturn  decimal.Decimal `json:"cumulative_return"`
	AvgReturnPerTrade decimal.Decimal `json:"avg_return_per_trade"`
}

// Summary is the dashboard roll-up of the whole ledger.
type Summary struct {
	Performance   Metrics         `json:"performance"`
	RecentTrades  []TradeRecord   `json:"recent_trades"`
	Position      *Position       `json:"current_position"`
	LatestBalance decimal.Decimal `json:"latest_balance"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
