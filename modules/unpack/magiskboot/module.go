// Package magiskboot implements the unpack.magiskboot module. It owns the
// worker pool and exposes the /start and /unpack commands.
package magiskboot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/fetch"
	"github.com/flemzord/bootunpack/internal/history"
	"github.com/flemzord/bootunpack/internal/pipeline"
	"github.com/flemzord/bootunpack/internal/router"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/internal/telemetry"
	"github.com/flemzord/bootunpack/internal/unpack"
	"github.com/flemzord/bootunpack/internal/workspace"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable      = (*Module)(nil)
	_ core.Provisioner       = (*Module)(nil)
	_ core.Validator         = (*Module)(nil)
	_ core.Starter           = (*Module)(nil)
	_ core.Stopper           = (*Module)(nil)
	_ router.CommandProvider = (*Module)(nil)
)

// Module runs downloads and the unpack tool for chat commands.
type Module struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger

	tool      string
	workspace *workspace.Workspace
	fetcher   *fetch.Fetcher
	invoker   *unpack.Invoker
	pool      *pipeline.Pool
	pipeline  *pipeline.Pipeline
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "unpack.magiskboot",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("unpack: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The tool is made executable here,
// once, before any request runs.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.appCtx = ctx
	m.logger = ctx.Logger

	verifier, err := m.config.verifier()
	if err != nil {
		return fmt.Errorf("unpack: %w", err)
	}

	tool, err := unpack.PrepareTool(m.config.ToolPath, ctx.Workspace)
	switch {
	case errors.Is(err, unpack.ErrToolMissing) && !verifier.Enabled():
		m.logger.Warn("unpack tool not found, requests will fail until it is installed", "path", tool)
	case err != nil:
		return err
	}
	if verifier.Enabled() {
		if err := verifier.Verify(tool); err != nil {
			return fmt.Errorf("unpack: tool verification failed: %w", err)
		}
		m.logger.Info("unpack tool verified", "path", tool)
	}
	m.tool = tool

	root := m.config.ScratchRoot
	if root != "" && !filepath.IsAbs(root) {
		root = filepath.Join(ctx.Workspace, root)
	}
	m.workspace = workspace.New(root)
	if *m.config.InvokeTimeout > 0 {
		m.workspace.MaxHold = m.config.FetchTimeout + *m.config.InvokeTimeout
	}
	if err := m.workspace.EnsureRoot(); err != nil {
		return err
	}

	version := "dev"
	if v, ok := core.Service[string](ctx, core.ServiceVersion); ok && v != "" {
		version = v
	}
	m.fetcher = fetch.New(fetch.Config{
		Timeout:   m.config.FetchTimeout,
		MaxBytes:  m.config.MaxBytes,
		UserAgent: "bootunpack/" + version,
	})

	creds, _ := core.Service[*security.CredentialStore](ctx, core.ServiceCredentials)
	m.invoker = unpack.New(unpack.Config{
		Tool:    tool,
		Timeout: *m.config.InvokeTimeout,
		Env:     func() []string { return security.SanitizedEnv(creds) },
	})

	m.pool = pipeline.NewPool(m.config.Workers, m.config.QueueSize, m.logger)

	ctx.RegisterService(core.ServiceWorkspace, m.workspace)
	ctx.RegisterService(core.ServicePoolStats, m.pool)
	if _, ok := ctx.GetService(history.ServiceName); !ok {
		ctx.RegisterService(history.ServiceName, history.NewMemoryStore(m.config.HistorySize))
	}

	if reg, ok := core.Service[prometheus.Registerer](ctx, core.ServiceRegistry); ok {
		stats := m.pool.Stats
		if err := telemetry.RegisterPoolGauges(reg,
			func() float64 { return float64(stats().Workers) },
			func() float64 { return float64(stats().Busy) },
			func() float64 { return float64(stats().Queued) },
		); err != nil {
			return fmt.Errorf("unpack: registering pool metrics: %w", err)
		}
	}

	m.logger.Info("unpack module provisioned",
		"tool", tool,
		"workers", m.config.Workers,
		"queue_size", m.config.QueueSize,
		"scratch_root", m.workspace.Root,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Commands implements router.CommandProvider. It builds the pipeline with
// the services available once every module is provisioned.
func (m *Module) Commands(sender router.ResponseSender) []router.Route {
	cfg := pipeline.Config{
		Fetcher:   m.fetcher,
		Invoker:   m.invoker,
		Workspace: m.workspace,
		Pool:      m.pool,
		Sender:    sender,
		Logger:    m.logger,
		FileName:  m.config.FileName,
	}
	cfg.URLFilter, _ = core.Service[*security.URLFilter](m.appCtx, core.ServiceURLFilter)
	cfg.Redactor, _ = core.Service[*security.Redactor](m.appCtx, core.ServiceRedactor)
	cfg.Metrics, _ = core.Service[*telemetry.Metrics](m.appCtx, core.ServiceMetrics)
	if tp, ok := core.Service[trace.TracerProvider](m.appCtx, core.ServiceTracing); ok {
		cfg.Tracer = telemetry.Tracer(tp)
	}
	cfg.History, _ = core.Service[history.Store](m.appCtx, history.ServiceName)

	p, err := pipeline.New(cfg)
	if err != nil {
		m.logger.Error("unpack pipeline unavailable", "error", err)
		return nil
	}
	m.pipeline = p
	return p.Routes()
}

// Start implements core.Starter.
func (m *Module) Start() error {
	m.pool.Start(context.Background())
	return nil
}

// Stop implements core.Stopper. Queued and running requests finish first.
func (m *Module) Stop(ctx context.Context) error {
	if m.pool == nil {
		return nil
	}
	return m.pool.Stop(ctx)
}
