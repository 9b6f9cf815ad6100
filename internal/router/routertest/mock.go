// Package routertest provides a recording router.ResponseSender for tests.
package routertest

import (
	"context"
	"sync"

	"github.com/flemzord/bootunpack/pkg/message"
)

// MockResponseSender records sent messages for test assertions.
type MockResponseSender struct {
	SendFunc func(ctx context.Context, msg message.OutboundMessage) error

	mu     sync.Mutex
	sent   []message.OutboundMessage
	notify chan struct{}
	once   sync.Once
}

func (m *MockResponseSender) init() {
	m.once.Do(func() { m.notify = make(chan struct{}, 1) })
}

// Send records the outbound message and optionally delegates to SendFunc.
func (m *MockResponseSender) Send(ctx context.Context, msg message.OutboundMessage) error {
	m.init()
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}

	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

// SentMessages returns a copy of all recorded outbound messages.
// Safe for concurrent use.
func (m *MockResponseSender) SentMessages() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]message.OutboundMessage, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// WaitForMessages blocks until at least n messages were sent or ctx ends.
func (m *MockResponseSender) WaitForMessages(ctx context.Context, n int) []message.OutboundMessage {
	m.init()
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
