// Package quote supplies instrument prices at decision time. The strategy
// treats the source as opaque; the simulation ships with fixed placeholder
// prices, and a live provider can be substituted without touching the
// engine's contract.
package quote

import (
	"context"

	"github.com/shopspring/decimal"
)

type Source interface {
	BuyPrice(ctx context.Context, instrumentCode string) (decimal.Decimal, error)
	SellPrice(ctx context.Context, instrumentCode string) (decimal.Decimal, error)
}

// Fixed returns the same prices for every instrument.
type Fixed struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// NewFixed builds the placeholder source used by the simulation:
// buys at 10000, sells at 10500.
func NewFixed() Fixed {
	return Fixed{
		Buy:  decimal.NewFromInt(10000),
		Sell: decimal.NewFromInt(10500),
	}
}

func (f Fixed) BuyPrice(ctx context.Context, instrumentCode string) (decimal.Decimal, error) {
	return f.Buy, nil
}

func (f Fixed) SellPrice(ctx context.Context, instrumentCode string) (decimal.Decimal, error) {
	return f.Sell, nil
}
