// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for bootunpack.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Security holds optional download and rate limiting restrictions.
	Security *SecurityConfig `yaml:"security,omitempty"`

	// Telemetry configures metrics and trace export.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`

	// Maintenance configures the scheduled background jobs.
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty"`

	// ShutdownTimeout is the grace period for stopping every module,
	// including draining queued unpack requests. Defaults to 30s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	URLFilter  URLFilterConfig `yaml:"url_filter"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
}

// URLFilterConfig restricts the hosts a download link may point to.
type URLFilterConfig struct {
	AllowDomains []string `yaml:"allow_domains,omitempty"`
	DenyDomains  []string `yaml:"deny_domains,omitempty"`
}

// RateLimitConfig bounds how often a single chat may request work.
// Zero disables the limit.
type RateLimitConfig struct {
	CommandsPerMinute int `yaml:"commands_per_minute"`
	Burst             int `yaml:"burst"`
}

// TelemetryConfig controls tracing. Prometheus metrics are always collected.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`

	// OTLPEndpoint is the host:port of an OTLP/HTTP collector. Tracing is
	// disabled when empty.
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// MaintenanceConfig schedules workspace sweeping and history pruning.
type MaintenanceConfig struct {
	// SweepSchedule is a 5-field cron expression for the scratch sweep.
	SweepSchedule string `yaml:"sweep_schedule"`

	// SweepMaxAge is the age after which leftover scratch directories are removed.
	SweepMaxAge time.Duration `yaml:"sweep_max_age"`

	// PruneSchedule is a 5-field cron expression for history pruning.
	PruneSchedule string `yaml:"prune_schedule"`

	// HistoryRetention is how long request records are kept. Zero keeps them forever.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// Maintenance defaults.
const (
	DefaultSweepSchedule = "*/15 * * * *"
	DefaultSweepMaxAge   = time.Hour
	DefaultPruneSchedule = "0 3 * * *"
)

// MaintenanceOrDefault returns the maintenance section with defaults applied.
func (c *Config) MaintenanceOrDefault() MaintenanceConfig {
	var m MaintenanceConfig
	if c.Maintenance != nil {
		m = *c.Maintenance
	}
	if m.SweepSchedule == "" {
		m.SweepSchedule = DefaultSweepSchedule
	}
	if m.SweepMaxAge <= 0 {
		m.SweepMaxAge = DefaultSweepMaxAge
	}
	if m.PruneSchedule == "" {
		m.PruneSchedule = DefaultPruneSchedule
	}
	return m
}
