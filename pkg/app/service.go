package app

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
)

// ServiceActions lists the control verbs accepted by ControlService.
var ServiceActions = service.ControlAction[:]

// program adapts RunContext to the service manager's Start/Stop callbacks.
type program struct {
	params RunParams
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- RunContext(ctx, p.params)
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the installed service. The config path is passed
// explicitly so the service does not depend on the caller's environment.
func serviceConfig(params RunParams) *service.Config {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		args = append(args, "--config", params.ConfigPath)
	}
	return &service.Config{
		Name:             Name,
		DisplayName:      "Boot image unpack bot",
		Description:      "Telegram bot that unpacks Android boot images with magiskboot.",
		Arguments:        args,
		WorkingDirectory: params.Workspace,
	}
}

// NewService returns the system service wrapping the bot.
func NewService(params RunParams) (service.Service, error) {
	s, err := service.New(&program{params: params}, serviceConfig(params))
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return s, nil
}

// ControlService runs one of ServiceActions (install, uninstall, start,
// stop, restart) against the system service manager.
func ControlService(params RunParams, action string) error {
	s, err := NewService(params)
	if err != nil {
		return err
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	return nil
}

// RunService runs the bot under the service manager, or in the foreground
// when started interactively.
func RunService(params RunParams) error {
	s, err := NewService(params)
	if err != nil {
		return err
	}
	return s.Run()
}
