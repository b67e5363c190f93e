package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pairwatch/internal/alert"
	"pairwatch/internal/config"
	"pairwatch/internal/exchange"
	"pairwatch/internal/metrics"
	"pairwatch/internal/monitor"
	sig "pairwatch/internal/signal"
	"pairwatch/internal/strategy"
	"pairwatch/internal/util"
)

const (
	serverClockResync = 30 * time.Second
	recentAlerts      = 200
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional, env overrides apply)")
	writeDefault := flag.String("write-default", "", "write the default config to this path and exit")
	flag.Parse()

	if *writeDefault != "" {
		log := util.NewLogger("info")
		if err := config.Save(*writeDefault, config.Default()); err != nil {
			log.Fatal().Err(err).Msg("write default config")
		}
		log.Info().Str("path", *writeDefault).Msg("default config written")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Str("env", cfg.App.Env).Logger()

	recent := alert.NewLedger(recentAlerts)
	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr, metrics.Route{Pattern: "/alerts", Handler: recent})
		defer srv.Close()
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sinks, closeSinks := buildSinks(ctx, cfg, log, recent)
	defer closeSinks()

	ref := exchange.NewReferenceClient(
		cfg.Exchange.RestURL,
		cfg.Exchange.RequestTimeout(),
		log,
		exchange.WithRateLimit(cfg.Exchange.RateLimitPerMin),
	)
	detector := strategy.NewPriceChangeDetector(ref, cfg.Exchange.Follower, cfg.Monitor.PriceChangeTime())

	var clock monitor.Clock = monitor.LocalClock{}
	if cfg.Monitor.Clock == config.ClockServer {
		clock = monitor.NewServerClock(ref, serverClockResync)
	}

	ticks := make(chan sig.Tick, cfg.Monitor.QueueSize)
	for _, symbol := range []string{cfg.Exchange.Leader, cfg.Exchange.Follower} {
		feed := exchange.NewFeed(cfg.Exchange.Provider, symbol, log, exchange.WithStreamURL(cfg.Exchange.StreamURL))
		go func() {
			if err := feed.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("symbol", feed.Symbol()).Msg("feed stopped")
				cancel()
			}
		}()
	}

	coord := monitor.NewCoordinator(monitor.Config{
		Leader:             cfg.Exchange.Leader,
		Follower:           cfg.Exchange.Follower,
		WindowSize:         cfg.Monitor.WindowSize,
		BorderValue:        cfg.Monitor.BorderValue,
		PriceChangeTime:    cfg.Monitor.PriceChangeTime(),
		PriceChangePercent: cfg.Monitor.PriceChangePercent,
	}, detector, sinks, clock, log)

	if err := coord.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("coordinator stopped")
		return
	}
	log.Info().Msg("shutting down")
}

// buildSinks always prints to stdout and keeps recent alerts for /alerts, then adds the optional
// file and Redis outputs.
func buildSinks(ctx context.Context, cfg *config.Config, log zerolog.Logger, recent *alert.Ledger) (*alert.Fanout, func()) {
	var closers []func() error
	sinks := []alert.Sink{alert.NewPrinter(os.Stdout), recent}

	if path := cfg.Alerts.JSONLPath; path != "" {
		rec, err := alert.NewJSONLRecorder(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("jsonl recorder disabled")
		} else {
			sinks = append(sinks, rec)
			closers = append(closers, rec.Close)
		}
	}

	if addr := cfg.Alerts.RedisAddr; addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Exchange.RequestTimeout())
		pub, err := alert.NewRedisPublisher(pingCtx, addr, cfg.Alerts.RedisPassword, cfg.Alerts.RedisDB, cfg.Alerts.RedisChannel)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("redis publisher disabled")
		} else {
			sinks = append(sinks, pub)
			closers = append(closers, pub.Close)
			log.Info().Str("channel", pub.Channel()).Msg("publishing alerts to redis")
		}
	}

	return alert.NewFanout(sinks...), func() {
		for _, c := range closers {
			_ = c()
		}
	}
}
