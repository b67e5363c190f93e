package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNonPositivePrice is returned when the reference price cannot serve as a divisor.
var ErrNonPositivePrice = errors.New("reference price must be positive")

var hundred = decimal.NewFromInt(100)

// TradeReference is the subset of the reference service the detector needs.
type TradeReference interface {
	ServerTime(ctx context.Context) (time.Time, error)
	FirstTradeAt(ctx context.Context, symbol string, at time.Time) (decimal.Decimal, error)
}

// PriceChangeSample is one horizon measurement.
type PriceChangeSample struct {
	Symbol     string
	Old        decimal.Decimal
	New        decimal.Decimal
	Horizon    time.Duration
	ObservedAt time.Time
	Percent    int64
}

// PriceChangeDetector measures how far a symbol moved over a fixed horizon using historical trades.
type PriceChangeDetector struct {
	ref     TradeReference
	symbol  string
	horizon time.Duration
}

// NewPriceChangeDetector builds a detector; horizons below one second are raised to one second.
func NewPriceChangeDetector(ref TradeReference, symbol string, horizon time.Duration) *PriceChangeDetector {
	if horizon < time.Second {
		horizon = time.Second
	}
	return &PriceChangeDetector{ref: ref, symbol: symbol, horizon: horizon}
}

// Symbol returns the instrument being measured.
func (d *PriceChangeDetector) Symbol() string { return d.symbol }

// Horizon returns the measured time span.
func (d *PriceChangeDetector) Horizon() time.Duration { return d.horizon }

// Detect reads server time, then the first trade at now-horizon and at now, and returns the
// truncated percent move between them. Lookups run sequentially; any failure aborts the sample.
func (d *PriceChangeDetector) Detect(ctx context.Context) (PriceChangeSample, error) {
	serverNow, err := d.ref.ServerTime(ctx)
	if err != nil {
		return PriceChangeSample{}, fmt.Errorf("server time: %w", err)
	}
	now := time.Unix(serverNow.Unix(), 0)

	oldPrice, err := d.ref.FirstTradeAt(ctx, d.symbol, now.Add(-d.horizon))
	if err != nil {
		return PriceChangeSample{}, fmt.Errorf("old price for %s: %w", d.symbol, err)
	}
	newPrice, err := d.ref.FirstTradeAt(ctx, d.symbol, now)
	if err != nil {
		return PriceChangeSample{}, fmt.Errorf("new price for %s: %w", d.symbol, err)
	}

	pct, err := ChangePercent(oldPrice, newPrice)
	if err != nil {
		return PriceChangeSample{}, err
	}
	return PriceChangeSample{
		Symbol:     d.symbol,
		Old:        oldPrice,
		New:        newPrice,
		Horizon:    d.horizon,
		ObservedAt: now,
		Percent:    pct,
	}, nil
}

// ChangePercent returns |new-old|*100/old truncated toward zero, so 100 -> 100.9 yields 0.
func ChangePercent(oldPrice, newPrice decimal.Decimal) (int64, error) {
	if !oldPrice.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrNonPositivePrice, oldPrice)
	}
	move := newPrice.Sub(oldPrice).Abs().Mul(hundred)
	quotient, _ := move.QuoRem(oldPrice, 0)
	return quotient.IntPart(), nil
}
