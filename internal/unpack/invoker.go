// Package unpack runs the external boot image tool against a downloaded file.
package unpack

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single tool run.
const DefaultTimeout = 5 * time.Minute

// waitDelay caps how long Invoke waits for output pipes after the tool
// has been killed.
const waitDelay = 5 * time.Second

// Config configures an Invoker.
type Config struct {
	// Tool is the absolute path of the executable.
	Tool string

	// Timeout bounds one run. Zero disables the limit.
	Timeout time.Duration

	// Env builds the child environment for each run. Nil inherits the
	// process environment.
	Env func() []string
}

// Invoker runs `<tool> unpack <file>`.
type Invoker struct {
	tool    string
	timeout time.Duration
	env     func() []string
}

// New creates an Invoker.
func New(cfg Config) *Invoker {
	return &Invoker{
		tool:    cfg.Tool,
		timeout: cfg.Timeout,
		env:     cfg.Env,
	}
}

// Tool returns the executable path.
func (i *Invoker) Tool() string {
	return i.tool
}

// Invoke runs the tool with dir as working directory and returns its
// combined stdout and stderr. A non-zero exit or a timeout yields
// *ExitError with the captured output; a tool that cannot be started
// yields a plain error.
func (i *Invoker) Invoke(ctx context.Context, dir, file string) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, i.tool, "unpack", file)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	if i.env != nil {
		cmd.Env = i.env()
	}
	configureProcess(cmd)

	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), nil
	}

	if i.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return string(out), &ExitError{
			ExitCode: exitCode(cmd),
			Output:   string(out),
			TimedOut: true,
			Timeout:  i.timeout,
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return string(out), fmt.Errorf("unpack: run aborted: %w", ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), &ExitError{
			ExitCode: exitErr.ExitCode(),
			Output:   string(out),
		}
	}

	return string(out), fmt.Errorf("unpack: running %s: %w", i.tool, err)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
