// Package monitor runs the stream coordinator: it buffers ticks from two instruments, correlates
// their windows when both fill up and checks the follower's price change on a fixed horizon.
package monitor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"pairwatch/internal/metrics"
	"pairwatch/internal/signal"
	"pairwatch/internal/strategy"
)

// ErrTicksClosed is returned by Run when the merged tick channel is closed.
var ErrTicksClosed = errors.New("tick channel closed")

// Detector measures the follower's move over the configured horizon.
type Detector interface {
	Detect(ctx context.Context) (strategy.PriceChangeSample, error)
}

// AlertSink receives alerts emitted by the coordinator.
type AlertSink interface {
	Publish(ctx context.Context, alert signal.Alert) error
}

// Config carries the thresholds the coordinator is constructed with.
type Config struct {
	Leader             string
	Follower           string
	WindowSize         int
	BorderValue        float64
	PriceChangeTime    time.Duration
	PriceChangePercent float64
}

// Coordinator is the single consumer of the merged tick channel. Windows and the horizon timer
// are owned by the goroutine calling Run and are never shared.
type Coordinator struct {
	cfg      Config
	detector Detector
	sink     AlertSink
	clock    Clock
	log      zerolog.Logger

	leader      *Window
	follower    *Window
	lastHorizon time.Time
	lastGood    time.Time
}

// clockRetry bounds the wait between clock reads while the clock is failing.
const clockRetry = time.Second

// NewCoordinator wires the coordinator; a nil clock means LocalClock.
func NewCoordinator(cfg Config, detector Detector, sink AlertSink, clock Clock, log zerolog.Logger) *Coordinator {
	if cfg.WindowSize < 2 {
		cfg.WindowSize = 20
	}
	if cfg.PriceChangeTime <= 0 {
		cfg.PriceChangeTime = time.Minute
	}
	if clock == nil {
		clock = LocalClock{}
	}
	return &Coordinator{
		cfg:      cfg,
		detector: detector,
		sink:     sink,
		clock:    clock,
		log:      log.With().Str("component", "coordinator").Logger(),
		leader:   NewWindow(cfg.WindowSize),
		follower: NewWindow(cfg.WindowSize),
	}
}

// Run consumes ticks until ctx is canceled or ticks is closed. Each iteration evaluates, in order,
// the horizon check, the window-full check and only then waits for the next tick.
func (c *Coordinator) Run(ctx context.Context, ticks <-chan signal.Tick) error {
	c.lastHorizon, _ = c.now(ctx)
	c.log.Info().
		Str("leader", c.cfg.Leader).
		Str("follower", c.cfg.Follower).
		Int("window", c.cfg.WindowSize).
		Dur("horizon", c.cfg.PriceChangeTime).
		Msg("coordinator started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now, ok := c.now(ctx)
		if ok {
			if c.lastHorizon.IsZero() {
				c.lastHorizon = now
			}
			if now.Sub(c.lastHorizon) >= c.cfg.PriceChangeTime {
				c.checkPriceChange(ctx, now)
			}
		}

		if c.leader.Full() && c.follower.Full() {
			c.checkCorrelation(ctx)
			continue
		}

		wait := clockRetry
		if ok {
			wait = c.cfg.PriceChangeTime - now.Sub(c.lastHorizon)
			if wait <= 0 {
				wait = time.Millisecond
			}
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case tk, ok := <-ticks:
			timer.Stop()
			if !ok {
				return ErrTicksClosed
			}
			c.ingest(tk)
		case <-timer.C:
		}
	}
}

// now reads the clock. On failure it returns the last good reading and false, so local time never
// leaks into horizon state kept on the server time base.
func (c *Coordinator) now(ctx context.Context) (time.Time, bool) {
	t, err := c.clock.Now(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("clock unavailable, horizon check skipped")
		return c.lastGood, false
	}
	c.lastGood = t
	return t, true
}

func (c *Coordinator) ingest(tk signal.Tick) {
	var w *Window
	switch tk.Symbol {
	case c.cfg.Leader:
		w = c.leader
	case c.cfg.Follower:
		w = c.follower
	default:
		metrics.TicksDropped.WithLabelValues(tk.Symbol, "unknown_symbol").Inc()
		c.log.Debug().Str("symbol", tk.Symbol).Msg("dropping tick for unknown symbol")
		return
	}
	if tk.Price <= 0 || math.IsNaN(tk.Price) || math.IsInf(tk.Price, 0) {
		metrics.TicksDropped.WithLabelValues(tk.Symbol, "invalid_price").Inc()
		c.log.Debug().Str("symbol", tk.Symbol).Float64("price", tk.Price).Msg("dropping tick with invalid price")
		return
	}
	if !w.Append(tk.Price) {
		metrics.TicksDropped.WithLabelValues(tk.Symbol, "window_full").Inc()
	}
}

// checkPriceChange runs the detector and resets the horizon whatever the outcome.
func (c *Coordinator) checkPriceChange(ctx context.Context, now time.Time) {
	defer func() { c.lastHorizon = now }()

	if c.detector == nil {
		return
	}
	sample, err := c.detector.Detect(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("price change check skipped")
		return
	}
	c.log.Debug().
		Str("symbol", sample.Symbol).
		Str("old", sample.Old.String()).
		Str("new", sample.New.String()).
		Int64("percent", sample.Percent).
		Msg("price change sampled")

	if float64(sample.Percent) > c.cfg.PriceChangePercent {
		c.emit(ctx, signal.Alert{
			Kind:    signal.KindPriceChange,
			Symbols: []string{sample.Symbol},
			Percent: sample.Percent,
			Horizon: sample.Horizon,
			Ts:      sample.ObservedAt,
		})
	}
}

// checkCorrelation correlates both full windows and clears them together.
func (c *Coordinator) checkCorrelation(ctx context.Context) {
	corr := strategy.Correlate(c.leader.Prices(), c.follower.Prices())
	c.leader.Reset()
	c.follower.Reset()

	strength := corr.Strength()
	metrics.CorrelationsTotal.WithLabelValues(string(strength)).Inc()
	if !corr.Defined {
		c.log.Debug().Msg("correlation undefined, a window had zero variance")
		return
	}
	metrics.LastCorrelation.Set(corr.Value)
	c.log.Debug().Float64("r", corr.Value).Str("strength", string(strength)).Msg("correlation computed")

	if math.Abs(corr.Value) < c.cfg.BorderValue {
		return
	}
	now, _ := c.now(ctx)
	ts := now
	if now.IsZero() {
		ts = time.Now()
	} else {
		c.lastHorizon = now
	}
	c.emit(ctx, signal.Alert{
		Kind:     signal.KindCorrelation,
		Symbols:  []string{c.cfg.Leader, c.cfg.Follower},
		Value:    corr.Value,
		Strength: string(strength),
		Ts:       ts,
	})
}

func (c *Coordinator) emit(ctx context.Context, alert signal.Alert) {
	metrics.AlertsTotal.WithLabelValues(string(alert.Kind)).Inc()
	if c.sink == nil {
		return
	}
	if err := c.sink.Publish(ctx, alert); err != nil {
		c.log.Error().Err(err).Str("kind", string(alert.Kind)).Msg("publish alert failed")
	}
}
