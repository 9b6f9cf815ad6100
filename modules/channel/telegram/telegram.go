package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/bootunpack/internal/channel"
	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/pkg/message"
)

// credentialName is the key under which the bot token is stored in the
// credential store, so that it is redacted from logs and stripped from
// child process environments.
const credentialName = "TELEGRAM_BOT_TOKEN"

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Telegram)(nil)
	_ core.Configurable = (*Telegram)(nil)
	_ core.Provisioner  = (*Telegram)(nil)
	_ core.Validator    = (*Telegram)(nil)
	_ core.Starter      = (*Telegram)(nil)
	_ core.Stopper      = (*Telegram)(nil)
)

// Telegram implements the Telegram Bot API channel.
type Telegram struct {
	config    Config
	logger    *slog.Logger
	allowList *channel.AllowList
	inbox     func(message.InboundMessage) error

	newBot    botFactory
	retryUnit time.Duration

	mu      sync.RWMutex
	bot     botAPI
	botUser tgbotapi.User
	poller  *Poller
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.logger = ctx.Logger
	t.allowList = t.config.allowList()
	if t.newBot == nil {
		t.newBot = newBotAPI
	}
	if t.retryUnit == 0 {
		t.retryUnit = time.Second
	}

	if t.config.Token != "" {
		if creds, ok := core.Service[*security.CredentialStore](ctx, core.ServiceCredentials); ok {
			creds.Set(credentialName, t.config.Token)
		}
		if redactor, ok := core.Service[*security.Redactor](ctx, core.ServiceRedactor); ok {
			redactor.AddLiteral(t.config.Token)
		}
	}

	if t.allowList == nil {
		t.logger.Info("telegram allow list empty, bot is public")
	}
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	return t.config.validate()
}

// Start implements core.Starter. It authenticates the bot token, then
// starts long polling.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return fmt.Errorf("%w: call SetInbox before Start", channel.ErrNoInbox)
	}

	tgbotapi.SetLogger(botLogger{logger: t.logger})

	bot, user, err := t.newBot(t.config)
	if err != nil {
		return err
	}
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.UserName,
	)

	poller := NewPoller(PollerConfig{
		Bot:         bot,
		Inbox:       t.inbox,
		AllowList:   t.allowList,
		Logger:      t.logger,
		BotUsername: user.UserName,
		Channel:     string(t.ModuleInfo().ID),
		Timeout:     t.config.PollingTimeout,
	})

	t.mu.Lock()
	t.bot = bot
	t.botUser = user
	t.poller = poller
	t.mu.Unlock()

	poller.Start()
	t.logger.Info("telegram polling started", "timeout", t.config.PollingTimeout)
	return nil
}

// Stop implements core.Stopper. The polling loop exits at once; the
// in-flight long poll is abandoned.
func (t *Telegram) Stop(ctx context.Context) error {
	t.mu.RLock()
	poller := t.poller
	t.mu.RUnlock()
	if poller == nil {
		return nil
	}

	t.logger.Info("telegram channel stopping")
	stopped := make(chan struct{})
	go func() {
		poller.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram: stop: %w", ctx.Err())
	}
}

// Send implements channel.Channel. It is safe for concurrent use and stays
// usable after Stop so that replies for draining jobs are delivered.
func (t *Telegram) Send(ctx context.Context, msg message.OutboundMessage) error {
	return t.sendOutbound(ctx, msg)
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(msg message.InboundMessage) error) {
	t.inbox = fn
}

// BotUsername returns the authenticated bot's username, or "" before Start.
func (t *Telegram) BotUsername() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.botUser.UserName
}

func (t *Telegram) currentBot() botAPI {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bot
}
