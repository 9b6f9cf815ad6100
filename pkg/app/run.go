// Package app assembles and runs the bot: configuration, logging, shared
// services, module loading and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flemzord/bootunpack/internal/config"
	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/internal/telemetry"
)

// Name is used for the config directory, data directory and service name.
const Name = "bootunpack"

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// Workspace overrides the default working directory.
	Workspace string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// LogFormat is "text" (default) or "json".
	LogFormat string

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

// Instance is a fully wired application that has not been started yet.
type Instance struct {
	App    *core.App
	Ctx    *core.AppContext
	Logger *slog.Logger

	shutdownTracing telemetry.ShutdownFunc
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM is received.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run with an explicit lifetime: modules stop when ctx is
// cancelled.
func RunContext(ctx context.Context, params RunParams) error {
	inst, err := Build(ctx, params)
	if err != nil {
		return err
	}
	defer inst.Close()
	return inst.App.Run(ctx)
}

// Build loads and validates the configuration, registers the shared
// services, loads every configured module and wires channels to the router.
func Build(ctx context.Context, params RunParams) (*Instance, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// Credential store and redactor come first so that every log line,
	// including module provisioning, goes through redaction.
	credStore := security.NewCredentialStore()
	redactor := security.NewRedactor()
	redactor.Track(credStore)
	logger := NewLogger(params.LogOutput, params.LogLevel, params.LogFormat, redactor)

	version := params.Version
	if version == "" {
		version = "dev"
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	workspace := params.Workspace
	if workspace == "" {
		workspace = DefaultWorkspace()
	}

	appCtx := core.NewAppContext(logger, dataDir, workspace)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	appCtx.RegisterService(core.ServiceVersion, version)
	appCtx.RegisterService(core.ServiceConfigPath, cfgPath)
	appCtx.RegisterService(core.ServiceCredentials, credStore)
	appCtx.RegisterService(core.ServiceRedactor, redactor)

	var rateLimiter *security.RateLimiter
	if cfg.Security != nil {
		rateLimiter = security.NewRateLimiter(security.RateLimitConfig{
			PerMinute: cfg.Security.RateLimits.CommandsPerMinute,
			Burst:     cfg.Security.RateLimits.Burst,
		})
		if rateLimiter != nil {
			appCtx.RegisterService(core.ServiceRateLimiter, rateLimiter)
		}

		filter := security.NewURLFilter(security.URLFilterConfig{
			AllowDomains: cfg.Security.URLFilter.AllowDomains,
			DenyDomains:  cfg.Security.URLFilter.DenyDomains,
		})
		if filter.IsConfigured() {
			appCtx.RegisterService(core.ServiceURLFilter, filter)
		}
	}

	registry := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	appCtx.RegisterService(core.ServiceRegistry, registry)
	appCtx.RegisterService(core.ServiceMetrics, metrics)

	tracingCfg := telemetry.TracingConfig{ServiceName: Name, Version: version}
	if cfg.Telemetry != nil {
		if cfg.Telemetry.ServiceName != "" {
			tracingCfg.ServiceName = cfg.Telemetry.ServiceName
		}
		tracingCfg.Endpoint = cfg.Telemetry.OTLPEndpoint
		tracingCfg.Insecure = cfg.Telemetry.OTLPInsecure
		tracingCfg.SampleRatio = cfg.Telemetry.SampleRatio
	}
	tp, shutdownTracing, err := telemetry.SetupTracing(ctx, tracingCfg)
	if err != nil {
		return nil, err
	}
	appCtx.RegisterService(core.ServiceTracing, tp)

	inst := &Instance{
		Ctx:             appCtx,
		Logger:          logger,
		shutdownTracing: shutdownTracing,
	}

	application := core.NewApp(appCtx)
	application.SetShutdownTimeout(cfg.ShutdownTimeout)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		inst.Close()
		return nil, err
	}
	inst.App = application

	if err := wireRouter(application, appCtx, ids, logger, rateLimiter, metrics); err != nil {
		application.Release()
		inst.Close()
		return nil, err
	}
	if err := wireMaintenance(application, appCtx, cfg.MaintenanceOrDefault(), logger); err != nil {
		application.Release()
		inst.Close()
		return nil, err
	}

	logger.Info("application built",
		"version", version,
		"config", cfgPath,
		"modules", len(ids),
	)
	return inst, nil
}

// Close flushes telemetry. Modules are stopped by App.Run, or by
// App.Release when the instance is never run.
func (i *Instance) Close() {
	if i.shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := i.shutdownTracing(ctx); err != nil && !errors.Is(err, context.Canceled) {
		i.Logger.Warn("tracing shutdown failed", "error", err)
	}
	i.shutdownTracing = nil
}

// NewLogger builds the process logger. Every record passes through the
// redactor before reaching the output.
func NewLogger(w io.Writer, level slog.Level, format string, redactor *security.Redactor) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/bootunpack/bootunpack.yaml, then
// ~/.config/bootunpack/bootunpack.yaml, then ./bootunpack.yaml.
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, Name, Name+".yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", Name, Name+".yaml"))
	}

	candidates = append(candidates, Name+".yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultConfigPath is where `config init` writes when no path is given.
func DefaultConfigPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, Name, Name+".yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", Name, Name+".yaml")
	}
	return Name + ".yaml"
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/bootunpack if set, otherwise ~/.local/share/bootunpack.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, Name)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", Name)
}

// DefaultWorkspace returns the current working directory.
func DefaultWorkspace() string {
	dir, _ := os.Getwd()
	return dir
}
