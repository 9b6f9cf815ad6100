package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/flemzord/bootunpack/internal/channel"
	"github.com/flemzord/bootunpack/pkg/message"
)

// PollerConfig holds what the polling loop needs from the channel.
type PollerConfig struct {
	Bot         botAPI
	Inbox       func(message.InboundMessage) error
	AllowList   *channel.AllowList
	Logger      *slog.Logger
	BotUsername string
	Channel     string
	// Timeout is the long-poll timeout in seconds.
	Timeout int
}

// Poller is the channel's event loop: one goroutine reading getUpdates and
// handing each accepted message to the inbox in arrival order.
type Poller struct {
	cfg    PollerConfig
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewPoller creates a Poller. Nothing is received until Start.
func NewPoller(cfg PollerConfig) *Poller {
	return &Poller{cfg: cfg, done: make(chan struct{})}
}

// Start begins long polling in the background.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.cfg.Timeout
	u.AllowedUpdates = []string{"message"}
	go p.run(ctx, p.cfg.Bot.GetUpdatesChan(u))
}

// Stop ends polling and waits for the loop to return. An update being
// handed to the inbox is finished first. Stop may be called more than once.
func (p *Poller) Stop() {
	p.once.Do(func() {
		p.cfg.Bot.StopReceivingUpdates()
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
}

// Done is closed once the loop has returned.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			p.deliver(update)
		}
	}
}

// deliver converts, filters and submits one update. A panic is logged and
// the loop carries on with the next update.
func (p *Poller) deliver(update tgbotapi.Update) {
	log := p.cfg.Logger.With("update_id", update.UpdateID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("telegram: panic while handling update", "panic", r)
		}
	}()

	msg, err := convertInbound(update, p.cfg.BotUsername, p.cfg.Channel)
	switch {
	case errors.Is(err, errNoMessage), errors.Is(err, errOtherTarget):
		log.Debug("telegram: update skipped", "reason", err)
		return
	case err != nil:
		log.Warn("telegram: update not converted", "error", err)
		return
	}

	if !p.cfg.AllowList.IsAllowed(msg) {
		log.Debug("telegram: sender not allowed", "sender", msg.Sender.Label(), "chat_id", msg.Chat.ID)
		return
	}
	if err := p.cfg.Inbox(msg); err != nil {
		log.Warn("telegram: inbox rejected message", "chat_id", msg.Chat.ID, "error", err)
	}
}
