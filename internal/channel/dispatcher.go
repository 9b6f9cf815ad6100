package channel

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/flemzord/bootunpack/pkg/message"
)

// Dispatcher delivers replies through the channel named in
// OutboundMessage.Channel. It satisfies router.ResponseSender.
type Dispatcher struct {
	mu     sync.RWMutex
	byName map[string]Channel
}

// NewDispatcher creates a Dispatcher with no channels.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byName: make(map[string]Channel)}
}

// Register makes ch reachable under name, normally its module ID.
func (d *Dispatcher) Register(name string, ch Channel) error {
	switch {
	case name == "":
		return fmt.Errorf("channel: register: empty name")
	case ch == nil:
		return fmt.Errorf("channel: register %s: nil channel", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byName[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.byName[name] = ch
	return nil
}

// Get looks up a registered channel.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.byName[name]
	return ch, ok
}

// Send validates msg and hands it to its channel. A reply with no chat or
// no content fails with ErrInvalidReply; an unknown channel with
// ErrNoChannel. Channel errors are wrapped with the channel name.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	if msg.Chat.ID == "" || (msg.Text == "" && msg.Header == "") {
		return ErrInvalidReply
	}

	ch, ok := d.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, msg.Channel)
	}
	if err := ch.Send(ctx, msg); err != nil {
		return fmt.Errorf("channel %s: %w", msg.Channel, err)
	}
	return nil
}

// Channels lists registered channel names in sorted order.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.byName))
}
