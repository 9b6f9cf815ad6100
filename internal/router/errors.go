// Package router parses chat commands and dispatches them to handlers on
// the channel's receiving goroutine.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrRouterStopped indicates the router has been shut down and is
	// no longer accepting messages.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoResponseSender indicates no response sender has been configured.
	// The router cannot deliver outbound messages without one.
	ErrNoResponseSender = errors.New("router: no response sender configured")

	// ErrDuplicateRoute indicates two handlers were registered for the
	// same command.
	ErrDuplicateRoute = errors.New("router: duplicate route")

	// ErrInvalidRoute indicates a route without a command or handler.
	ErrInvalidRoute = errors.New("router: invalid route")
)
