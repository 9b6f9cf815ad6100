package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultShutdownTimeout bounds a whole shutdown unless overridden with
// SetShutdownTimeout.
const DefaultShutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of modules.
type App struct {
	ctx             *AppContext
	modules         []moduleInstance
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

type moduleInstance struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:             ctx,
		logger:          ctx.Logger.With("component", "core"),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetShutdownTimeout changes the grace period given to Stop. Non-positive
// values are ignored.
func (a *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		a.shutdownTimeout = d
	}
}

// LoadModules instantiates, provisions, and validates all modules for the
// given IDs in order. If any step fails, already-loaded modules are cleaned up.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.Release()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		info := mod.ModuleInfo()
		a.modules = append(a.modules, moduleInstance{
			id:     info.ID,
			module: mod,
		})
		a.logger.Info("module loaded", "module", string(info.ID))
	}
	return nil
}

// Module returns the loaded module with the given ID.
func (a *App) Module(id string) (Module, bool) {
	for _, mi := range a.modules {
		if string(mi.id) == id {
			return mi.module, true
		}
	}
	return nil, false
}

// AppendModule adds an already-built module to the lifecycle. It is started
// after every module loaded before it and stopped before them.
func (a *App) AppendModule(id ModuleID, mod Module) {
	a.modules = append(a.modules, moduleInstance{id: id, module: mod})
}

// Start starts all loaded modules that implement Starter, in order.
// If any Start() fails, already-started modules are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			// Modules without Start still get Stop during shutdown.
			mi.started = true
			continue
		}
		a.logger.Info("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			_ = a.stopModules(i - 1)
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.started = true
	}
	a.logger.Info("all modules started", "modules", len(a.modules))
	return nil
}

// Stop stops all started modules in reverse order. The whole shutdown
// shares one grace period; modules still running when it ends get an
// expired context. Stop errors are logged and returned joined.
func (a *App) Stop() error {
	return a.stopModules(len(a.modules) - 1)
}

// Release stops every loaded module, started or not, and forgets them. It
// is for an App that was built but will not run, so that modules holding
// resources since Provision (open databases) let go of them.
func (a *App) Release() {
	for i := range a.modules {
		a.modules[i].started = true
	}
	_ = a.stopModules(len(a.modules) - 1)
	a.modules = nil
}

func (a *App) stopModules(fromIndex int) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := fromIndex; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.started {
			continue
		}
		mi.started = false
		s, ok := mi.module.(Stopper)
		if !ok {
			continue
		}
		start := time.Now()
		a.logger.Info("stopping module", "module", string(mi.id))
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop error", "module", string(mi.id), "error", err)
			errs = append(errs, fmt.Errorf("stopping module %s: %w", mi.id, err))
			continue
		}
		a.logger.Debug("module stopped", "module", string(mi.id), "duration", time.Since(start))
	}
	return errors.Join(errs...)
}

// Run starts all modules and blocks until ctx is cancelled, then stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(ctx), "grace", a.shutdownTimeout)

	err := a.Stop()
	a.logger.Info("shutdown complete")
	return err
}
