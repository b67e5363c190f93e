package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"pairwatch/internal/metrics"
)

// ErrNoTrades is returned when the reference service has no trade at or after the requested time.
var ErrNoTrades = errors.New("no trades in range")

const (
	defaultRestURL        = "https://fapi.binance.com"
	defaultRequestTimeout = 5 * time.Second

	serverTimePath = "/fapi/v1/time"
	aggTradesPath  = "/fapi/v1/aggTrades"
)

// AggTrade is one aggregated trade record returned by the historical trades endpoint.
type AggTrade struct {
	ID    int64           `json:"a"`
	Price decimal.Decimal `json:"p"`
	Qty   decimal.Decimal `json:"q"`
	Time  int64           `json:"T"`
}

// ReferenceClient queries Binance REST endpoints for server time and historical trades.
type ReferenceClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// ReferenceOption configures a ReferenceClient.
type ReferenceOption func(*ReferenceClient)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(c *http.Client) ReferenceOption {
	return func(r *ReferenceClient) {
		if c != nil {
			r.http = c
		}
	}
}

// WithRateLimit caps outgoing requests per minute; burst is a tenth of the budget.
func WithRateLimit(requestsPerMinute int) ReferenceOption {
	return func(r *ReferenceClient) {
		if requestsPerMinute <= 0 {
			return
		}
		burst := requestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

// NewReferenceClient builds a client; timeout bounds every single request.
func NewReferenceClient(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...ReferenceOption) *ReferenceClient {
	if baseURL == "" {
		baseURL = defaultRestURL
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c := &ReferenceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     log.With().Str("component", "reference").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServerTime returns the exchange clock at millisecond precision.
func (c *ReferenceClient) ServerTime(ctx context.Context) (time.Time, error) {
	var body struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := c.get(ctx, "server_time", serverTimePath, nil, &body); err != nil {
		return time.Time{}, err
	}
	if body.ServerTime <= 0 {
		return time.Time{}, fmt.Errorf("server_time: missing serverTime field")
	}
	return time.UnixMilli(body.ServerTime), nil
}

// AggTrades lists up to limit trades for symbol starting at start.
func (c *ReferenceClient) AggTrades(ctx context.Context, symbol string, start time.Time, limit int) ([]AggTrade, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(limit))

	var trades []AggTrade
	if err := c.get(ctx, "agg_trades", aggTradesPath, q, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// FirstTradeAt returns the price of the earliest trade at or after at.
func (c *ReferenceClient) FirstTradeAt(ctx context.Context, symbol string, at time.Time) (decimal.Decimal, error) {
	trades, err := c.AggTrades(ctx, symbol, at, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(trades) == 0 {
		metrics.ReferenceErrors.WithLabelValues("agg_trades").Inc()
		return decimal.Zero, fmt.Errorf("%s at %d: %w", symbol, at.UnixMilli(), ErrNoTrades)
	}
	return trades[0].Price, nil
}

func (c *ReferenceClient) get(ctx context.Context, op, path string, q url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ReferenceLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ReferenceErrors.WithLabelValues(op).Inc()
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: status %d", op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	c.log.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("reference call")
	return nil
}
