package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "PUPCARE_"
	envFileVar = "PUPCARE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PUPCARE_CONFIG is set
//  3. env (prefix PUPCARE_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PUPCARE_QUEUE_SIZE -> queue_size, PUPCARE_ESTIMATOR__BEDTIME_HOUR -> estimator.bedtime_hour
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with. The estimator
// trusts a validated config and applies no defaults of its own.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if c.Addr == "" {
		add("addr must not be empty")
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			add("sqlite_path must not be empty for the sqlite store")
		}
	default:
		add("store must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		add("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.EventQueueSize < 1 {
		add("queue_size must be positive")
	}
	if c.DedupeSize < 1 {
		add("dedupe_size must be positive")
	}
	if c.WorkerCount < 1 {
		add("worker_count must be positive")
	}
	if c.EvaluationIntervalSeconds < 0 {
		add("evaluation_interval_seconds must not be negative")
	}

	e := c.Estimator
	if e.DefaultGapMinutes < 1 {
		add("estimator.default_gap_minutes must be positive")
	}
	if e.PostMealMultiplier <= 0 || e.PostMealMultiplier >= 1 || e.PostSleepMultiplier <= 0 || e.PostSleepMultiplier >= 1 {
		add("estimator multipliers must be within (0, 1)")
	}
	if e.MinNapMinutes < 0 || e.TriggerWindowMinutes < 0 || e.JustOccurredMinutes < 0 || e.PostIncidentMinutes < 0 {
		add("estimator minute settings must not be negative")
	}
	if e.BedtimeHour < 0 || e.BedtimeHour > 23 || e.MorningHour < 0 || e.MorningHour > 23 {
		add("estimator hours must be within 0-23")
	}
	if e.DueSoonMinutes < 0 || e.AttentionMinutes < e.DueSoonMinutes {
		add("estimator thresholds must satisfy 0 <= due_soon_minutes <= attention_minutes")
	}
	if e.HistoryLookbackHours < 0 || e.MaxGapMinutes < 0 {
		add("estimator history bounds must not be negative")
	}
	if _, err := e.AnalyzerOptions(); err != nil {
		add("estimator.gap_statistic: %v", err)
	}
	if _, err := e.Location(); err != nil {
		add("estimator.timezone: %v", err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
