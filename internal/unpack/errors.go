package unpack

import (
	"errors"
	"fmt"
	"time"
)

// ErrToolMissing is returned by PrepareTool when the tool file does not exist.
var ErrToolMissing = errors.New("unpack: tool not found")

// ExitError reports a tool run that did not exit cleanly. Output holds
// everything the tool wrote to stdout and stderr before it stopped.
type ExitError struct {
	ExitCode int
	Output   string

	// TimedOut is set when the run was killed by the invocation timeout.
	TimedOut bool
	Timeout  time.Duration
}

func (e *ExitError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("unpack: tool killed after %s", e.Timeout)
	}
	return fmt.Sprintf("unpack: tool exited with code %d", e.ExitCode)
}
