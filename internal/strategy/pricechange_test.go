package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeReference struct {
	now     time.Time
	prices  map[int64]string
	timeErr error
	calls   []time.Time
}

func (f *fakeReference) ServerTime(context.Context) (time.Time, error) {
	if f.timeErr != nil {
		return time.Time{}, f.timeErr
	}
	return f.now, nil
}

func (f *fakeReference) FirstTradeAt(_ context.Context, _ string, at time.Time) (decimal.Decimal, error) {
	f.calls = append(f.calls, at)
	px, ok := f.prices[at.Unix()]
	if !ok {
		return decimal.Zero, errors.New("no trades")
	}
	return decimal.RequireFromString(px), nil
}

func TestChangePercentTruncates(t *testing.T) {
	cases := []struct {
		old, new string
		want     int64
	}{
		{"100", "101", 1},
		{"100", "100.9", 0},
		{"100", "99", 1},
		{"100", "97.5", 2},
		{"2300.50", "2300.50", 0},
		{"3", "3.03", 1},
	}
	for _, tc := range cases {
		got, err := ChangePercent(decimal.RequireFromString(tc.old), decimal.RequireFromString(tc.new))
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "old=%s new=%s", tc.old, tc.new)
	}
}

func TestChangePercentRejectsZeroOld(t *testing.T) {
	_, err := ChangePercent(decimal.Zero, decimal.NewFromInt(5))
	require.ErrorIs(t, err, ErrNonPositivePrice)
}

func TestDetectUsesHorizonAndSecondGranularity(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_750)
	ref := &fakeReference{
		now: now,
		prices: map[int64]string{
			1_700_000_000 - 60: "2000",
			1_700_000_000:      "2041",
		},
	}
	d := NewPriceChangeDetector(ref, "ETHUSDT", time.Minute)

	sample, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), sample.Percent)
	require.Equal(t, "ETHUSDT", sample.Symbol)
	require.Len(t, ref.calls, 2)
	require.Equal(t, time.Unix(1_700_000_000-60, 0), ref.calls[0])
	require.Equal(t, time.Unix(1_700_000_000, 0), ref.calls[1])
	require.Equal(t, time.Unix(1_700_000_000, 0), sample.ObservedAt)
}

func TestDetectPropagatesErrors(t *testing.T) {
	ref := &fakeReference{timeErr: errors.New("unreachable")}
	d := NewPriceChangeDetector(ref, "ETHUSDT", time.Minute)
	_, err := d.Detect(context.Background())
	require.Error(t, err)

	ref = &fakeReference{now: time.Unix(1000, 0), prices: map[int64]string{940: "10"}}
	d = NewPriceChangeDetector(ref, "ETHUSDT", time.Minute)
	_, err = d.Detect(context.Background())
	require.ErrorContains(t, err, "new price for ETHUSDT")
}
