package config

import (
	"flag"
	"fmt"
	"strings"
)

// Load builds the configuration from, in increasing priority: defaults, the
// YAML file named by -config or PRICEWATCH_CONFIG, PRICEWATCH_* variables and
// flags explicitly present in args. The result is not validated.
func Load(args []string) (*Config, error) {
	def := DefaultConfig()
	fs := flag.NewFlagSet("pricewatch", flag.ContinueOnError)

	configFile := fs.String("config", "", "YAML config file")
	source := fs.String("source", def.SourceURL, "Listing page to monitor")
	backend := fs.String("store", def.StoreBackend, "Snapshot store: json, sqlite, or postgres")
	storePath := fs.String("store-path", def.StorePath, "Snapshot file (json) or database file (sqlite)")
	dsn := fs.String("postgres-dsn", "", "PostgreSQL connection string for the postgres store")
	interval := fs.Duration("interval", def.Interval, "Wait between cycles")
	cycles := fs.Int("cycles", def.Cycles, "Number of cycles to run (0 runs until interrupted)")
	pages := fs.Int("pages", def.MaxPages, "Maximum result pages per cycle")
	timeout := fs.Duration("timeout", def.Timeout, "Request timeout")
	delay := fs.Duration("delay", def.Delay, "Delay between requests to the same domain")
	randomDelay := fs.Duration("random-delay", def.RandomDelay, "Random extra delay between requests")
	render := fs.Bool("render", def.Render, "Render the page in headless Chromium before extraction")
	browserBin := fs.String("browser-bin", "", "Chromium binary for -render (auto-detected when empty)")
	respectRobots := fs.Bool("respect-robots", def.RespectRobotsTxt, "Respect robots.txt directives")
	dedupeMax := fs.Int("dedupe-max", def.DedupeMaxSize, "Listing keys remembered for in-run dedupe (0 disables)")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	verbose := fs.Bool("v", def.Verbose, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	path := *configFile
	if path == "" {
		path, _ = EnvString(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.SourceURL = *source
		case "store":
			cfg.StoreBackend = strings.ToLower(*backend)
		case "store-path":
			cfg.StorePath = *storePath
		case "postgres-dsn":
			cfg.PostgresDSN = *dsn
		case "interval":
			cfg.Interval = *interval
		case "cycles":
			cfg.Cycles = *cycles
		case "pages":
			cfg.MaxPages = *pages
		case "timeout":
			cfg.Timeout = *timeout
		case "delay":
			cfg.Delay = *delay
		case "random-delay":
			cfg.RandomDelay = *randomDelay
		case "render":
			cfg.Render = *render
		case "browser-bin":
			cfg.BrowserBin = *browserBin
		case "respect-robots":
			cfg.RespectRobotsTxt = *respectRobots
		case "dedupe-max":
			cfg.DedupeMaxSize = *dedupeMax
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "v":
			cfg.Verbose = *verbose
		}
	})
	return cfg, nil
}
