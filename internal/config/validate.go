package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/cron"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present,
// checks that all referenced module IDs exist in the registry,
// and validates the optional security, telemetry and maintenance sections.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateSecurity(cfg.Security)...)
	errs = append(errs, validateTelemetry(cfg.Telemetry)...)
	errs = append(errs, validateMaintenance(cfg.Maintenance)...)

	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: shutdown_timeout must not be negative, got %s", cfg.ShutdownTimeout))
	}

	return errors.Join(errs...)
}

func validateSecurity(sec *SecurityConfig) []error {
	if sec == nil {
		return nil
	}
	var errs []error

	for i, d := range sec.URLFilter.AllowDomains {
		if strings.TrimSpace(d) == "" || strings.Contains(d, "/") {
			errs = append(errs, fmt.Errorf("config: security.url_filter.allow_domains[%d]: invalid domain %q", i, d))
		}
	}
	for i, d := range sec.URLFilter.DenyDomains {
		if strings.TrimSpace(d) == "" || strings.Contains(d, "/") {
			errs = append(errs, fmt.Errorf("config: security.url_filter.deny_domains[%d]: invalid domain %q", i, d))
		}
	}

	if sec.RateLimits.CommandsPerMinute < 0 {
		errs = append(errs, errors.New("config: security.rate_limits.commands_per_minute must not be negative"))
	}
	if sec.RateLimits.Burst < 0 {
		errs = append(errs, errors.New("config: security.rate_limits.burst must not be negative"))
	}

	return errs
}

func validateTelemetry(tel *TelemetryConfig) []error {
	if tel == nil {
		return nil
	}
	var errs []error
	if tel.SampleRatio < 0 || tel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_ratio must be within [0, 1], got %v", tel.SampleRatio))
	}
	if strings.Contains(tel.OTLPEndpoint, "://") {
		errs = append(errs, fmt.Errorf("config: telemetry.otlp_endpoint must be host:port, got %q", tel.OTLPEndpoint))
	}
	return errs
}

func validateMaintenance(m *MaintenanceConfig) []error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.SweepSchedule != "" {
		if err := cron.ValidateSchedule(m.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: maintenance.sweep_schedule: %w", err))
		}
	}
	if m.PruneSchedule != "" {
		if err := cron.ValidateSchedule(m.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: maintenance.prune_schedule: %w", err))
		}
	}
	if m.SweepMaxAge < 0 {
		errs = append(errs, errors.New("config: maintenance.sweep_max_age must not be negative"))
	}
	if m.HistoryRetention < 0 {
		errs = append(errs, errors.New("config: maintenance.history_retention must not be negative"))
	}
	return errs
}
