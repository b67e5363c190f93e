// Package exchange hosts the tick sources and the reference service client for centralized venues.
package exchange

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pairwatch/internal/metrics"
	"pairwatch/internal/signal"
)

const (
	// ProviderStub emits synthetic random-walk ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed streams trades for a single instrument over its own persistent connection.
type Feed struct {
	provider     string
	symbol       string
	log          zerolog.Logger
	streamURL    string
	stubInterval time.Duration
	stubPrice    float64
	minBackoff   time.Duration
	maxBackoff   time.Duration
	pongWait     time.Duration
	seq          uint64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultStreamURL    = "wss://stream.binance.com:9443/ws"
	defaultStubInterval = 500 * time.Millisecond
	defaultMinBackoff   = time.Second
	defaultMaxBackoff   = 30 * time.Second
)

// WithStreamURL overrides the websocket base URL; the symbol path is appended per feed.
func WithStreamURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.streamURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithStubInterval overrides the synthetic tick cadence.
func WithStubInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubInterval = d
		}
	}
}

// WithStubPrice sets the synthetic walk's starting price.
func WithStubPrice(px float64) Option {
	return func(f *Feed) {
		if px > 0 {
			f.stubPrice = px
		}
	}
}

// WithBackoff bounds the reconnect delay after a transport failure.
func WithBackoff(min, max time.Duration) Option {
	return func(f *Feed) {
		if min > 0 {
			f.minBackoff = min
		}
		if max >= f.minBackoff {
			f.maxBackoff = max
		}
	}
}

// NewFeed constructs a feed for symbol backed by the requested provider.
func NewFeed(provider, symbol string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	f := &Feed{
		provider:     strings.ToLower(provider),
		symbol:       symbol,
		log:          log.With().Str("component", "feed").Str("symbol", symbol).Logger(),
		streamURL:    defaultStreamURL,
		stubInterval: defaultStubInterval,
		stubPrice:    100,
		minBackoff:   defaultMinBackoff,
		maxBackoff:   defaultMaxBackoff,
		pongWait:     binancePongWait,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbol returns the instrument this feed delivers.
func (f *Feed) Symbol() string { return f.symbol }

// Run pushes ticks onto out until the context is canceled. Sends block when out is full.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// emit stamps the arrival order and blocks until the coordinator accepts the tick.
func (f *Feed) emit(ctx context.Context, out chan<- signal.Tick, px float64, ts time.Time) error {
	f.seq++
	tick := signal.Tick{Symbol: f.symbol, Price: px, Seq: f.seq, Ts: ts}
	select {
	case out <- tick:
		metrics.TicksTotal.WithLabelValues(f.symbol).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(f.stubInterval)
	defer ticker.Stop()

	h := fnv.New64a()
	_, _ = h.Write([]byte(f.symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	px := f.stubPrice
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px = math.Max(px*(1+rng.NormFloat64()*0.001), 0.0001)
			if err := f.emit(ctx, out, px, ts); err != nil {
				return err
			}
		}
	}
}
