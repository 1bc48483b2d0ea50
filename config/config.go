package config

import (
	"fmt"
	"net/url"
	"time"
)

// Store backends.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Selectors are the CSS selectors used to pull listings out of a result page.
type Selectors struct {
	Container     string   `yaml:"container"`
	Item          string   `yaml:"item"`
	Title         []string `yaml:"title"`
	PriceWhole    string   `yaml:"price_whole"`
	PriceFraction string   `yaml:"price_fraction"`
	Rating        string   `yaml:"rating"`
	KeyAttr       string   `yaml:"key_attr"`
	Next          string   `yaml:"next"`
}

// Config holds monitor configuration.
type Config struct {
	SourceURL string    `yaml:"source_url"`
	Selectors Selectors `yaml:"selectors"`

	Interval time.Duration `yaml:"interval"`
	Cycles   int           `yaml:"cycles"`

	StoreBackend string `yaml:"store_backend"`
	StorePath    string `yaml:"store_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`

	MaxPages         int           `yaml:"max_pages"`
	Timeout          time.Duration `yaml:"timeout"`
	Delay            time.Duration `yaml:"delay"`
	RandomDelay      time.Duration `yaml:"random_delay"`
	UserAgent        string        `yaml:"user_agent"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
	DedupeMaxSize    int           `yaml:"dedupe_max_size"`

	Render     bool   `yaml:"render"`
	BrowserBin string `yaml:"browser_bin"`

	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
}

// DefaultSelectors match an Amazon search result list.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:     "div.s-main-slot.s-result-list",
		Item:          `div[data-component-type="s-search-result"]`,
		Title:         []string{"span.a-size-medium.a-color-base.a-text-normal", "h2 span"},
		PriceWhole:    "span.a-price-whole",
		PriceFraction: "span.a-price-fraction",
		Rating:        "span.a-icon-alt",
		KeyAttr:       "data-asin",
		Next:          "a.s-pagination-next",
	}
}

// DefaultConfig returns defaults that reproduce a single two-cycle check.
func DefaultConfig() *Config {
	return &Config{
		SourceURL:        "https://www.amazon.com/s?k=flipper+zero",
		Selectors:        DefaultSelectors(),
		Interval:         2 * time.Minute,
		Cycles:           2,
		StoreBackend:     BackendJSON,
		StorePath:        "product_data.json",
		MaxPages:         1,
		Timeout:          30 * time.Second,
		Delay:            2 * time.Second,
		RandomDelay:      3 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:89.0) Gecko/20100101 Firefox/89.0",
		RespectRobotsTxt: false,
		DedupeMaxSize:    10000,
		Render:           false,
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("source URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("source URL must include a host")
	}

	if c.Selectors.Item == "" {
		return fmt.Errorf("item selector cannot be empty")
	}
	if len(c.Selectors.Title) == 0 {
		return fmt.Errorf("title selector cannot be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Cycles < 0 {
		return fmt.Errorf("cycles cannot be negative")
	}

	switch c.StoreBackend {
	case BackendJSON, BackendSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("store path cannot be empty for the %s backend", c.StoreBackend)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN cannot be empty for the postgres backend")
		}
	default:
		return fmt.Errorf("store backend must be json, sqlite, or postgres")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.DedupeMaxSize < 0 {
		return fmt.Errorf("dedupe max size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
