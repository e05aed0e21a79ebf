// Package strategy implements the contrarian trading decision policy: one
// position at a time, opened and closed purely in response to sentiment
// signals, with every decision journaled to the append-only ledger.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gw/contrarian-trader/internal/ledger"
	"github.com/gw/contrarian-trader/internal/quote"
)

// ErrMissingTarget is returned when an UP/DOWN sentiment arrives without a
// resolved target instrument. The decision cycle writes nothing.
var ErrMissingTarget = errors.New("strategy: sentiment requires a target instrument")

var hundred = decimal.NewFromInt(100)

// Signal is one classified content item handed to the engine. The
// sentiment-to-instrument mapping is supplied by the classifier, not
// computed here.
type Signal struct {
	SourceRef   string
	SourceTitle string
	SourceURL   string
	AnalyzedAt  time.Time

	Sentiment ledger.Sentiment
	Reasoning string

	TargetCode string // empty for NEUTRAL
	TargetName string
}

// Params are the strategy's sizing policy.
type Params struct {
	InitialCapital decimal.Decimal
	PositionSize   decimal.Decimal // fixed amount committed per BUY
}

// Engine applies signals against the ledger. It holds no position state of
// its own: the current position is re-derived from the ledger on every
// Apply. Callers must serialize Apply cycles per ledger; the engine does
// not lock internally.
type Engine struct {
	store  *ledger.Store
	quotes quote.Source
	params Params
}

func New(store *ledger.Store, quotes quote.Source, params Params) *Engine {
	return &Engine{store: store, quotes: quotes, params: params}
}

// Apply executes one decision cycle and returns the records it appended,
// in ledger order. An instrument switch appends two records: the closing
// SELL, then the opening BUY.
func (e *Engine) Apply(ctx context.Context, sig Signal) ([]ledger.TradeRecord, error) {
	if sig.AnalyzedAt.IsZero() {
		sig.AnalyzedAt = time.Now().UTC()
	}

	pos, err := e.store.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := e.store.LatestBalance(ctx)
	if err != nil {
		return nil, err
	}
	// Empty ledger: the zero sentinel means initial capital. This
	// substitution is strategy policy, not the store's.
	if balance.IsZero() {
		balance = e.params.InitialCapital
	}

	switch sig.Sentiment {
	case ledger.SentimentNeutral:
		return e.applyNeutral(ctx, sig, pos, balance)
	case ledger.SentimentUp, ledger.SentimentDown:
		return e.applyDirectional(ctx, sig, pos, balance)
	default:
		return nil, fmt.Errorf("strategy: unknown sentiment %q", sig.Sentiment)
	}
}

func (e *Engine) applyNeutral(ctx context.Context, sig Signal, pos *ledger.Position, balance decimal.Decimal) ([]ledger.TradeRecord, error) {
	if pos == nil {
		rec := e.analysisRecord(sig, ledger.ActionNone, balance, "neutral stance, no position held")
		if _, err := e.store.Append(ctx, &rec); err != nil {
			return nil, err
		}
		slog.Info("neutral stance, nothing to sell", "source", sig.SourceRef)
		return []ledger.TradeRecord{rec}, nil
	}

	rec, _, err := e.closePosition(ctx, sig, ledger.ActionSellAll, pos, balance, "neutral stance, closed position")
	if err != nil {
		return nil, err
	}
	slog.Info("position closed on neutral stance",
		"instrument", pos.InstrumentName,
		"profit", rec.RealizedProfit,
	)
	return []ledger.TradeRecord{rec}, nil
}

func (e *Engine) applyDirectional(ctx context.Context, sig Signal, pos *ledger.Position, balance decimal.Decimal) ([]ledger.TradeRecord, error) {
	if sig.TargetCode == "" {
		return nil, fmt.Errorf("%w (sentiment %s)", ErrMissingTarget, sig.Sentiment)
	}

	action := ledger.ActionBuyInverse
	if sig.Sentiment == ledger.SentimentDown {
		action = ledger.ActionBuyPrimary
	}

	var out []ledger.TradeRecord

	if pos != nil {
		if pos.InstrumentCode == sig.TargetCode {
			// Repeated identical signal: record the analysis, trade nothing.
			note := fmt.Sprintf("already holding %s, no action", sig.TargetName)
			rec := e.analysisRecord(sig, action, balance, note)
			if _, err := e.store.Append(ctx, &rec); err != nil {
				return nil, err
			}
			slog.Info("already holding target instrument", "instrument", sig.TargetName)
			return []ledger.TradeRecord{rec}, nil
		}

		note := fmt.Sprintf("switching instruments, selling before buying %s", sig.TargetName)
		sellRec, newBalance, err := e.closePosition(ctx, sig, action, pos, balance, note)
		if err != nil {
			return nil, err
		}
		slog.Info("position closed for instrument switch",
			"from", pos.InstrumentName,
			"to", sig.TargetName,
		)
		out = append(out, sellRec)
		balance = newBalance
	}

	buyRec, err := e.openPosition(ctx, sig, action, balance)
	if err != nil {
		return nil, err
	}
	out = append(out, buyRec)
	return out, nil
}

// closePosition appends the SELL row that liquidates pos at the current
// market price. Realized profit is recognized here and only here.
func (e *Engine) closePosition(ctx context.Context, sig Signal, action ledger.Action, pos *ledger.Position, balance decimal.Decimal, note string) (ledger.TradeRecord, decimal.Decimal, error) {
	sellPrice, err := e.quotes.SellPrice(ctx, pos.InstrumentCode)
	if err != nil {
		return ledger.TradeRecord{}, balance, fmt.Errorf("fetching sell price: %w", err)
	}

	sellAmount := sellPrice.Mul(decimal.NewFromInt(pos.Quantity))
	profit := sellAmount.Sub(pos.BuyAmount)
	// A zero-amount position (legacy zero-quantity BUY row) closes at 0%.
	profitPct := decimal.Zero
	if pos.BuyAmount.IsPositive() {
		profitPct = profit.Div(pos.BuyAmount).Mul(hundred)
	}
	newBalance := balance.Add(profit)

	rec := ledger.TradeRecord{
		SourceRef:         sig.SourceRef,
		SourceTitle:       sig.SourceTitle,
		SourceURL:         sig.SourceURL,
		AnalyzedAt:        sig.AnalyzedAt,
		Sentiment:         sig.Sentiment,
		Reasoning:         sig.Reasoning,
		Action:            action,
		TradeType:         ledger.TradeSell,
		InstrumentCode:    pos.InstrumentCode,
		InstrumentName:    pos.InstrumentName,
		Quantity:          pos.Quantity,
		UnitPrice:         sellPrice,
		GrossAmount:       sellAmount,
		RealizedProfit:    profit,
		RealizedProfitPct: profitPct,
		RunningBalance:    newBalance,
		RunningReturnPct:  e.returnPct(newBalance),
		Notes:             fmt.Sprintf("%s (P/L %s, %s%%)", note, profit, profitPct.StringFixed(2)),
	}
	if _, err := e.store.Append(ctx, &rec); err != nil {
		return ledger.TradeRecord{}, balance, err
	}
	return rec, newBalance, nil
}

// openPosition appends a BUY row sized as floor(position_size / price).
// A BUY carries the balance forward unchanged.
func (e *Engine) openPosition(ctx context.Context, sig Signal, action ledger.Action, balance decimal.Decimal) (ledger.TradeRecord, error) {
	buyPrice, err := e.quotes.BuyPrice(ctx, sig.TargetCode)
	if err != nil {
		return ledger.TradeRecord{}, fmt.Errorf("fetching buy price: %w", err)
	}
	if !buyPrice.IsPositive() {
		return ledger.TradeRecord{}, fmt.Errorf("strategy: non-positive buy price %s for %s", buyPrice, sig.TargetCode)
	}

	quantity := e.params.PositionSize.Div(buyPrice).IntPart()
	if quantity == 0 {
		return ledger.TradeRecord{}, fmt.Errorf("strategy: position size %s buys zero shares of %s at %s",
			e.params.PositionSize, sig.TargetCode, buyPrice)
	}
	grossAmount := buyPrice.Mul(decimal.NewFromInt(quantity))

	rec := ledger.TradeRecord{
		SourceRef:        sig.SourceRef,
		SourceTitle:      sig.SourceTitle,
		SourceURL:        sig.SourceURL,
		AnalyzedAt:       sig.AnalyzedAt,
		Sentiment:        sig.Sentiment,
		Reasoning:        sig.Reasoning,
		Action:           action,
		TradeType:        ledger.TradeBuy,
		InstrumentCode:   sig.TargetCode,
		InstrumentName:   sig.TargetName,
		Quantity:         quantity,
		UnitPrice:        buyPrice,
		GrossAmount:      grossAmount,
		RunningBalance:   balance,
		RunningReturnPct: e.returnPct(balance),
		Notes:            fmt.Sprintf("%s stance, contrarian buy of %s", sig.Sentiment, sig.TargetName),
	}
	if _, err := e.store.Append(ctx, &rec); err != nil {
		return ledger.TradeRecord{}, err
	}
	slog.Info("position opened",
		"instrument", sig.TargetName,
		"quantity", quantity,
		"price", buyPrice,
	)
	return rec, nil
}

// analysisRecord builds a trade-less row that carries the balance forward.
func (e *Engine) analysisRecord(sig Signal, action ledger.Action, balance decimal.Decimal, note string) ledger.TradeRecord {
	return ledger.TradeRecord{
		SourceRef:        sig.SourceRef,
		SourceTitle:      sig.SourceTitle,
		SourceURL:        sig.SourceURL,
		AnalyzedAt:       sig.AnalyzedAt,
		Sentiment:        sig.Sentiment,
		Reasoning:        sig.Reasoning,
		Action:           action,
		TradeType:        ledger.TradeNone,
		UnitPrice:        decimal.Zero,
		GrossAmount:      decimal.Zero,
		RealizedProfit:   decimal.Zero,
		RunningBalance:   balance,
		RunningReturnPct: e.returnPct(balance),
		Notes:            note,
	}
}

func (e *Engine) returnPct(balance decimal.Decimal) decimal.Decimal {
	if !e.params.InitialCapital.IsPositive() {
		return decimal.Zero
	}
	return balance.Sub(e.params.InitialCapital).Div(e.params.InitialCapital).Mul(hundred)
}
