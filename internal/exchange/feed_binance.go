package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pairwatch/internal/metrics"
	"pairwatch/internal/signal"
)

const (
	binancePongWait   = 30 * time.Second
	binancePingPeriod = 15 * time.Second
)

type binanceTrade struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

func (f *Feed) binanceURL() string {
	return fmt.Sprintf("%s/%s@trade", f.streamURL, strings.ToLower(f.symbol))
}

func (f *Feed) runBinance(ctx context.Context, out chan<- signal.Tick) error {
	if f.symbol == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	url := f.binanceURL()
	backoff := f.minBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		connected, err := f.consumeBinanceStream(ctx, url, out)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = f.minBackoff
		}
		metrics.FeedReconnects.WithLabelValues(f.symbol).Inc()
		f.log.Warn().Err(err).Dur("backoff", backoff).Msg("binance feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(f.maxBackoff), float64(backoff)*1.8))
	}
}

// consumeBinanceStream reads one connection until it fails. connected reports whether the dial succeeded.
func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- signal.Tick) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("url", url).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(f.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.pongWait))
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(binancePingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				// unblock ReadMessage on shutdown
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(f.pongWait))

		px, ts, err := parseBinanceTrade(message)
		if err != nil {
			f.log.Warn().Err(err).Msg("skipping malformed binance message")
			continue
		}
		if err := f.emit(ctx, out, px, ts); err != nil {
			return true, err
		}
		// time spent blocked on a full queue must not count against the peer
		conn.SetReadDeadline(time.Now().Add(f.pongWait))
	}
}

func parseBinanceTrade(message []byte) (float64, time.Time, error) {
	var trade binanceTrade
	if err := json.Unmarshal(message, &trade); err != nil {
		return 0, time.Time{}, fmt.Errorf("decode trade: %w", err)
	}
	if trade.Price == "" {
		return 0, time.Time{}, fmt.Errorf("trade without price field")
	}
	px, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid price %q: %w", trade.Price, err)
	}
	if px <= 0 {
		return 0, time.Time{}, fmt.Errorf("non-positive price %q", trade.Price)
	}
	ts := time.Now()
	if trade.TradeTime > 0 {
		ts = time.UnixMilli(trade.TradeTime)
	}
	return px, ts, nil
}
