// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"time"

	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/prediction"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the event log backend: memory or sqlite.
	Store      string `koanf:"store"`
	SQLitePath string `koanf:"sqlite_path"`

	// EventQueueSize bounds the urgency monitor's signal queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of urgency monitor workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// EvaluationIntervalSeconds sets the monitor tick; 0 disables it.
	EvaluationIntervalSeconds int `koanf:"evaluation_interval_seconds"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`

	Estimator Estimator `koanf:"estimator"`
}

// Estimator holds prediction and gap analysis settings.
type Estimator struct {
	DefaultGapMinutes    int     `koanf:"default_gap_minutes"`
	PostMealMultiplier   float64 `koanf:"post_meal_multiplier"`
	PostSleepMultiplier  float64 `koanf:"post_sleep_multiplier"`
	MinNapMinutes        int     `koanf:"min_nap_minutes"`
	TriggerWindowMinutes int     `koanf:"trigger_window_minutes"`
	BedtimeHour          int     `koanf:"bedtime_hour"`
	MorningHour          int     `koanf:"morning_hour"`
	AttentionMinutes     int     `koanf:"attention_minutes"`
	DueSoonMinutes       int     `koanf:"due_soon_minutes"`
	JustOccurredMinutes  int     `koanf:"just_occurred_minutes"`
	PostIncidentMinutes  int     `koanf:"post_incident_minutes"`

	// GapStatistic is median or mean.
	GapStatistic         string `koanf:"gap_statistic"`
	HistoryLookbackHours int    `koanf:"history_lookback_hours"`
	MaxGapMinutes        int    `koanf:"max_gap_minutes"`
	// Timezone names the IANA zone for bedtime hours; "Local" uses the host zone.
	Timezone string `koanf:"timezone"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	s := prediction.DefaultSettings()
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		Store:                     StoreMemory,
		SQLitePath:                "pupcare.db",
		EventQueueSize:            1024,
		WorkerCount:               2,
		DedupeSize:                10_000,
		EvaluationIntervalSeconds: 60,
		ShutdownTimeoutSeconds:    10,
		Estimator: Estimator{
			DefaultGapMinutes:    s.DefaultGapMinutes,
			PostMealMultiplier:   s.PostMealMultiplier,
			PostSleepMultiplier:  s.PostSleepMultiplier,
			MinNapMinutes:        s.MinNapMinutes,
			TriggerWindowMinutes: s.TriggerWindowMinutes,
			BedtimeHour:          s.BedtimeHour,
			MorningHour:          s.MorningHour,
			AttentionMinutes:     s.AttentionMinutes,
			DueSoonMinutes:       s.DueSoonMinutes,
			JustOccurredMinutes:  s.JustOccurredMinutes,
			PostIncidentMinutes:  s.PostIncidentMinutes,
			GapStatistic:         gaps.Median.String(),
			HistoryLookbackHours: 7 * 24,
			MaxGapMinutes:        6 * 60,
			Timezone:             "Local",
		},
	}
}

// Settings returns the estimator settings.
func (e Estimator) Settings() prediction.Settings {
	return prediction.Settings{
		DefaultGapMinutes:    e.DefaultGapMinutes,
		PostMealMultiplier:   e.PostMealMultiplier,
		PostSleepMultiplier:  e.PostSleepMultiplier,
		MinNapMinutes:        e.MinNapMinutes,
		TriggerWindowMinutes: e.TriggerWindowMinutes,
		BedtimeHour:          e.BedtimeHour,
		MorningHour:          e.MorningHour,
		AttentionMinutes:     e.AttentionMinutes,
		DueSoonMinutes:       e.DueSoonMinutes,
		JustOccurredMinutes:  e.JustOccurredMinutes,
		PostIncidentMinutes:  e.PostIncidentMinutes,
	}
}

// AnalyzerOptions returns the gap analyzer configuration.
func (e Estimator) AnalyzerOptions() ([]gaps.Option, error) {
	stat, err := gaps.ParseStatistic(e.GapStatistic)
	if err != nil {
		return nil, err
	}
	return []gaps.Option{
		gaps.WithStatistic(stat),
		gaps.WithLookback(time.Duration(e.HistoryLookbackHours) * time.Hour),
		gaps.WithMaxGap(time.Duration(e.MaxGapMinutes) * time.Minute),
	}, nil
}

// Location resolves Timezone.
func (e Estimator) Location() (*time.Location, error) {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(e.Timezone)
}

// EvaluationInterval returns the monitor tick interval.
func (c *Config) EvaluationInterval() time.Duration {
	return time.Duration(c.EvaluationIntervalSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
