package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "PRICEWATCH_"

// EnvString returns the trimmed value of key and whether it was set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a time.Duration ("90s", "2m").
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overrides cfg with any PRICEWATCH_* variables that are set.
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SOURCE":       &cfg.SourceURL,
		"STORE":        &cfg.StoreBackend,
		"STORE_PATH":   &cfg.StorePath,
		"POSTGRES_DSN": &cfg.PostgresDSN,
		"USER_AGENT":   &cfg.UserAgent,
		"BROWSER_BIN":  &cfg.BrowserBin,
		"METRICS_ADDR": &cfg.MetricsAddr,
	}
	for name, dst := range strs {
		if value, ok := EnvString(EnvPrefix + name); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"CYCLES":     &cfg.Cycles,
		"PAGES":      &cfg.MaxPages,
		"DEDUPE_MAX": &cfg.DedupeMaxSize,
	}
	for name, dst := range ints {
		value, ok, err := EnvInt(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"INTERVAL":     &cfg.Interval,
		"TIMEOUT":      &cfg.Timeout,
		"DELAY":        &cfg.Delay,
		"RANDOM_DELAY": &cfg.RandomDelay,
	}
	for name, dst := range durations {
		value, ok, err := EnvDuration(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	bools := map[string]*bool{
		"RENDER":         &cfg.Render,
		"RESPECT_ROBOTS": &cfg.RespectRobotsTxt,
		"VERBOSE":        &cfg.Verbose,
	}
	for name, dst := range bools {
		value, ok, err := EnvBool(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	return nil
}
