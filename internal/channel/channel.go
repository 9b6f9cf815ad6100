// Package channel defines the bridge between messaging platforms and the
// command router: the Channel interface, outbound dispatch, allow-list
// filtering, and message chunking.
package channel

import (
	"context"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/pkg/message"
)

// Channel is the bridge between a messaging platform and the router.
//
// A channel receives messages from its platform, checks the allow-list, and
// pushes them to the router via the inbox callback. The inbox is always
// called from the channel's single receiving goroutine, so a slow inbox
// delays every later message. It also delivers replies via Send, which may
// be called concurrently from worker goroutines.
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel a function to push inbound messages to the router.
	// The router calls this during wiring, before Start().
	SetInbox(fn func(msg message.InboundMessage) error)
}
