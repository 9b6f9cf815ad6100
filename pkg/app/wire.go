package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/bootunpack/internal/channel"
	"github.com/flemzord/bootunpack/internal/config"
	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/cron"
	"github.com/flemzord/bootunpack/internal/history"
	"github.com/flemzord/bootunpack/internal/router"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/internal/telemetry"
	"github.com/flemzord/bootunpack/internal/workspace"
)

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// wireRouter creates the Router and Dispatcher, registers the commands of
// every command provider, connects every channel's inbox to the router and
// appends the router to the app lifecycle.
// Must be called after LoadModules and before Start.
func wireRouter(
	app *core.App,
	appCtx *core.AppContext,
	ids []string,
	logger *slog.Logger,
	rateLimiter *security.RateLimiter,
	metrics *telemetry.Metrics,
) error {
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel
	var providers []router.CommandProvider

	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		if ch, ok := mod.(channel.Channel); ok {
			// Register under the full module ID (e.g. "channel.telegram") because
			// that is what the channel sets as msg.Channel in inbound messages.
			if err := dispatcher.Register(id, ch); err != nil {
				return fmt.Errorf("registering channel %s: %w", id, err)
			}
			channels = append(channels, ch)
			logger.Info("router: registered channel", "channel", id)
		}
		if p, ok := mod.(router.CommandProvider); ok {
			providers = append(providers, p)
		}
	}

	if len(channels) == 0 {
		logger.Info("router: no channels found, skipping router wiring")
		return nil
	}
	if len(providers) == 0 {
		return fmt.Errorf("router: at least one command module is required")
	}

	r, err := router.NewRouter(router.Config{
		ResponseSender: dispatcher,
		Logger:         logger,
		RateLimiter:    rateLimiter,
		Metrics:        metrics,
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	for _, p := range providers {
		for _, route := range p.Commands(dispatcher) {
			if err := r.Handle(route); err != nil {
				return fmt.Errorf("module %s: %w", p.ModuleInfo().ID, err)
			}
		}
		logger.Info("router: registered commands", "module", p.ModuleInfo().ID)
	}
	if len(r.Commands()) == 0 {
		return fmt.Errorf("router: no commands registered")
	}

	for _, ch := range channels {
		ch.SetInbox(r.Submit)
	}

	app.AppendModule("router", &routerModule{
		router: r,
		ctx:    context.Background(),
	})

	logger.Info("router: wired", "channels", len(channels), "commands", len(r.Commands()))
	return nil
}

// cronModule runs the maintenance scheduler as part of the App lifecycle.
type cronModule struct {
	scheduler *cron.Scheduler
}

func (m *cronModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *cronModule) Start() error {
	return m.scheduler.Start()
}

func (m *cronModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// wireMaintenance schedules the scratch sweep when an unpack module exposes
// its workspace, and history pruning when a retention is configured.
func wireMaintenance(
	app *core.App,
	appCtx *core.AppContext,
	cfg config.MaintenanceConfig,
	logger *slog.Logger,
) error {
	scheduler := cron.NewScheduler(logger)

	if sweeper, ok := core.Service[cron.Sweeper](appCtx, core.ServiceWorkspace); ok {
		if ws, ok := sweeper.(*workspace.Workspace); ok && ws.MaxHold > 0 && cfg.SweepMaxAge <= ws.MaxHold {
			return fmt.Errorf("config: maintenance.sweep_max_age %s must exceed the longest request (%s)", cfg.SweepMaxAge, ws.MaxHold)
		}
		if err := scheduler.RegisterJob(&cron.ScratchSweepJob{
			Sweeper:      sweeper,
			MaxAge:       cfg.SweepMaxAge,
			Logger:       logger,
			ScheduleExpr: cfg.SweepSchedule,
		}); err != nil {
			return err
		}
	}

	if store, ok := core.Service[cron.Pruner](appCtx, history.ServiceName); ok && cfg.HistoryRetention > 0 {
		if err := scheduler.RegisterJob(&cron.HistoryPruneJob{
			Store:        store,
			Retention:    cfg.HistoryRetention,
			Logger:       logger,
			ScheduleExpr: cfg.PruneSchedule,
		}); err != nil {
			return err
		}
	}

	jobs := scheduler.Jobs()
	if len(jobs) == 0 {
		return nil
	}
	app.AppendModule("cron", &cronModule{scheduler: scheduler})
	appCtx.RegisterService(core.ServiceScheduler, scheduler)
	logger.Info("cron: maintenance scheduled", "jobs", jobs)
	return nil
}
