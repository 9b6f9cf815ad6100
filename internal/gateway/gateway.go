// Package gateway exposes the operations HTTP endpoints: health, Prometheus
// metrics, status and recent request history.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/history"
	"github.com/flemzord/bootunpack/internal/pipeline"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// StatsProvider reports worker pool state.
type StatsProvider interface {
	Stats() pipeline.PoolStats
}

// JobTrigger starts maintenance jobs on demand.
type JobTrigger interface {
	Jobs() []string
	Trigger(name string) bool
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	stats    StatsProvider
	jobs     JobTrigger
	history  history.Store
	gatherer prometheus.Gatherer
	version  string
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	if !g.config.Auth.IsConfigured() {
		g.logger.Info("gateway auth not configured, /status and /api are disabled")
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	if _, err := g.config.Auth.networks(); err != nil {
		return err
	}
	return nil
}

// resolveServices binds the optional services published by other modules.
// Missing services leave the matching fields empty.
func (g *Gateway) resolveServices() {
	g.stats, _ = core.Service[StatsProvider](g.appCtx, core.ServicePoolStats)
	g.jobs, _ = core.Service[JobTrigger](g.appCtx, core.ServiceScheduler)
	g.history, _ = core.Service[history.Store](g.appCtx, history.ServiceName)
	g.gatherer, _ = core.Service[prometheus.Gatherer](g.appCtx, core.ServiceRegistry)
	g.version, _ = core.Service[string](g.appCtx, core.ServiceVersion)
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
