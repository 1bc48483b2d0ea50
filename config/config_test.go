package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty source url",
			mutate: func(cfg *Config) {
				cfg.SourceURL = ""
			},
			wantErr: "source URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.SourceURL = "http://"
			},
			wantErr: "source URL",
		},
		{
			name: "zero interval",
			mutate: func(cfg *Config) {
				cfg.Interval = 0
			},
			wantErr: "interval",
		},
		{
			name: "negative cycles",
			mutate: func(cfg *Config) {
				cfg.Cycles = -1
			},
			wantErr: "cycles",
		},
		{
			name: "unknown backend",
			mutate: func(cfg *Config) {
				cfg.StoreBackend = "redis"
			},
			wantErr: "store backend",
		},
		{
			name: "json without path",
			mutate: func(cfg *Config) {
				cfg.StorePath = ""
			},
			wantErr: "store path",
		},
		{
			name: "postgres without dsn",
			mutate: func(cfg *Config) {
				cfg.StoreBackend = BackendPostgres
			},
			wantErr: "postgres DSN",
		},
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "missing item selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.Item = ""
			},
			wantErr: "item selector",
		},
		{
			name: "negative dedupe",
			mutate: func(cfg *Config) {
				cfg.DedupeMaxSize = -1
			},
			wantErr: "dedupe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricewatch.yaml")
	doc := `
source_url: https://shop.example.test/search?q=widgets
interval: 90s
cycles: 0
store_backend: sqlite
store_path: state.db
selectors:
  item: li.result
  title: ["h3 a"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}

	if cfg.SourceURL != "https://shop.example.test/search?q=widgets" {
		t.Fatalf("source = %q", cfg.SourceURL)
	}
	if cfg.Interval != 90*time.Second {
		t.Fatalf("interval = %v, want 90s", cfg.Interval)
	}
	if cfg.Cycles != 0 || cfg.StoreBackend != BackendSQLite || cfg.StorePath != "state.db" {
		t.Fatalf("unexpected store/cycles: %+v", cfg)
	}
	if cfg.Selectors.Item != "li.result" || len(cfg.Selectors.Title) != 1 || cfg.Selectors.Title[0] != "h3 a" {
		t.Fatalf("selectors = %+v", cfg.Selectors)
	}
	if cfg.Selectors.PriceWhole != DefaultSelectors().PriceWhole {
		t.Fatalf("unset selector should keep its default, got %q", cfg.Selectors.PriceWhole)
	}
	if cfg.UserAgent != DefaultConfig().UserAgent {
		t.Fatalf("unset key should keep its default")
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sorce_url: typo\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := LoadFile(path, DefaultConfig()); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadFileEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("empty file should be accepted, got %v", err)
	}
	if cfg.Cycles != DefaultConfig().Cycles {
		t.Fatalf("empty file changed defaults")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("PRICEWATCH_TEST_INT", " 7 ")
	value, ok, err := EnvInt("PRICEWATCH_TEST_INT")
	if err != nil || !ok || value != 7 {
		t.Fatalf("EnvInt = %d, %v, %v; want 7, true, nil", value, ok, err)
	}

	t.Setenv("PRICEWATCH_TEST_INT", "seven")
	if _, _, err := EnvInt("PRICEWATCH_TEST_INT"); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, ok, err := EnvInt("PRICEWATCH_TEST_UNSET"); ok || err != nil {
		t.Fatalf("unset variable should report ok=false, err=nil")
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricewatch.yaml")
	doc := "cycles: 5\ninterval: 10s\nstore_path: from-file.json\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PRICEWATCH_CONFIG", path)
	t.Setenv("PRICEWATCH_INTERVAL", "20s")
	t.Setenv("PRICEWATCH_STORE_PATH", "from-env.json")

	cfg, err := Load([]string{"-store-path", "from-flag.json", "-v"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Cycles != 5 {
		t.Fatalf("cycles = %d, want file value 5", cfg.Cycles)
	}
	if cfg.Interval != 20*time.Second {
		t.Fatalf("interval = %v, want env value 20s", cfg.Interval)
	}
	if cfg.StorePath != "from-flag.json" {
		t.Fatalf("store path = %q, want flag value", cfg.StorePath)
	}
	if !cfg.Verbose {
		t.Fatalf("verbose flag not applied")
	}
	if cfg.SourceURL != DefaultConfig().SourceURL {
		t.Fatalf("unset flag should not override defaults")
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("PRICEWATCH_CYCLES", "many")
	if _, err := Load(nil); err == nil || !strings.Contains(err.Error(), "PRICEWATCH_CYCLES") {
		t.Fatalf("expected PRICEWATCH_CYCLES error, got %v", err)
	}
}
