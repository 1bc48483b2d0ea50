package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/pricewatch/config"
	"github.com/aluiziolira/pricewatch/monitor"
	"github.com/aluiziolira/pricewatch/scraper"
	"github.com/aluiziolira/pricewatch/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricewatch: %v\n", err)
		return 1
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current cycle")
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	scraperMetrics := scraper.NewMetrics(registry)
	monitorMetrics := monitor.NewMetrics(registry)

	fetcher, err := newFetcher(cfg, scraperMetrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		return 1
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("opening snapshot store", slog.String("backend", cfg.StoreBackend), slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("close snapshot store", slog.Any("error", err))
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting price watch",
		slog.String("source", cfg.SourceURL),
		slog.String("store", cfg.StoreBackend),
		slog.Int("cycles", cfg.Cycles),
		slog.Duration("interval", cfg.Interval),
		slog.Bool("render", cfg.Render),
	)

	m := monitor.New(fetcher, st,
		monitor.WithSource(cfg.SourceURL),
		monitor.WithCycles(cfg.Cycles),
		monitor.WithInterval(cfg.Interval),
		monitor.WithLogger(logger),
		monitor.WithNotifier(monitor.NewConsoleNotifier(os.Stdout, logger)),
		monitor.WithMetrics(monitorMetrics),
	)
	runErr := m.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("price watch stopped", slog.Any("error", runErr))
		return 1
	}
	return 0
}

func newFetcher(cfg *config.Config, metrics *scraper.Metrics) (monitor.Fetcher, error) {
	if cfg.Render {
		return scraper.NewBrowserFetcher(cfg, metrics), nil
	}
	return scraper.NewScraper(cfg, metrics)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	// stdout carries the console notifications
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
