// Package channeltest provides a channel.Channel test double.
package channeltest

import (
	"context"
	"sync"

	"github.com/flemzord/bootunpack/internal/channel"
	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/pkg/message"
)

// MockChannel records sent messages and lets tests push inbound messages
// through the allow-list and inbox with SimulateMessage.
type MockChannel struct {
	name      string
	allowList *channel.AllowList

	mu     sync.Mutex
	inbox  func(msg message.InboundMessage) error
	sent   []message.OutboundMessage
	notify chan struct{}

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, msg message.OutboundMessage) error
}

var _ channel.Channel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel registered as "channel.<name>".
// A nil allowList makes the channel public.
func NewMockChannel(name string, allowList *channel.AllowList) *MockChannel {
	return &MockChannel{
		name:      name,
		allowList: allowList,
		notify:    make(chan struct{}, 1),
	}
}

// ID returns the module ID the channel reports.
func (m *MockChannel) ID() string {
	return "channel." + m.name
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID(m.ID()),
		New: func() core.Module {
			return NewMockChannel(m.name, m.allowList)
		},
	}
}

// Send records the outbound message. If SendFunc is set, it delegates to it.
func (m *MockChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// SetInbox stores the inbox callback provided by the router.
func (m *MockChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage pushes msg through the allow-list and into the inbox,
// tagging it with the channel's module ID.
func (m *MockChannel) SimulateMessage(msg message.InboundMessage) error {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()

	if !m.allowList.IsAllowed(msg) {
		return channel.ErrDenied
	}
	if inbox == nil {
		return channel.ErrNoInbox
	}
	msg.Channel = m.ID()
	return inbox(msg)
}

// SentMessages returns a copy of all outbound messages recorded by Send.
func (m *MockChannel) SentMessages() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]message.OutboundMessage, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// WaitForMessages blocks until at least n messages were sent or ctx ends,
// and returns what was recorded.
func (m *MockChannel) WaitForMessages(ctx context.Context, n int) []message.OutboundMessage {
	for {
		if sent := m.SentMessages(); len(sent) >= n {
			return sent
		}
		select {
		case <-m.notify:
		case <-ctx.Done():
			return m.SentMessages()
		}
	}
}
