package router

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/internal/telemetry"
	"github.com/flemzord/bootunpack/pkg/message"
)

// RateLimitedText is sent when a chat exceeds its command budget.
const RateLimitedText = "Too many requests, please try again in a moment."

// ResponseSender delivers outbound messages to the originating channel.
type ResponseSender interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// Request is one parsed command. It lives until the command is answered.
type Request struct {
	ID      string
	Command string

	// Argument is the first token after the command; Args holds them all.
	Argument string
	Args     []string

	Message message.InboundMessage
}

// HandlerFunc answers a command. It runs on the channel's receiving
// goroutine and must not block on long work.
type HandlerFunc func(ctx context.Context, req Request)

// Route binds a command name to its handler.
type Route struct {
	Command string

	// Filter, if set, must match the raw message text or the message is
	// ignored.
	Filter *regexp.Regexp

	// RateLimited subjects the route to the per-chat rate limiter.
	RateLimited bool

	Handler HandlerFunc
}

// CommandProvider is implemented by modules that expose chat commands.
type CommandProvider interface {
	core.Module
	Commands(sender ResponseSender) []Route
}

// Config holds the configuration for a Router.
type Config struct {
	ResponseSender ResponseSender
	Logger         *slog.Logger

	// RateLimiter, if non-nil, limits rate-limited routes per chat.
	RateLimiter *security.RateLimiter

	Metrics *telemetry.Metrics

	// BotUsername, if set, makes the router ignore commands addressed to
	// another bot ("/unpack@otherbot").
	BotUsername string
}

// Router is the central dispatch layer between channels and command
// handlers.
type Router struct {
	config Config
	logger *slog.Logger

	mu      sync.RWMutex
	routes  map[string]Route
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.ResponseSender == nil {
		return nil, ErrNoResponseSender
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		config: cfg,
		logger: cfg.Logger,
		routes: make(map[string]Route),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Handle registers a route.
func (r *Router) Handle(route Route) error {
	name := strings.ToLower(strings.TrimPrefix(route.Command, "/"))
	if name == "" || route.Handler == nil {
		return fmt.Errorf("%w: %q", ErrInvalidRoute, route.Command)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[name]; exists {
		return fmt.Errorf("%w: /%s", ErrDuplicateRoute, name)
	}
	route.Command = name
	r.routes[name] = route
	return nil
}

// Commands returns the registered command names.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}

// Start binds handler contexts to ctx.
func (r *Router) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.logger.Info("router: started", "commands", len(r.routes))
}

// Submit is the channel inbox. Non-command messages, unknown commands and
// messages rejected by a route filter are ignored.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.mu.RLock()
	if r.stopped {
		r.mu.RUnlock()
		return ErrRouterStopped
	}
	ctx := r.ctx
	cmd, ok := ParseCommand(msg.Text)
	var route Route
	if ok {
		route, ok = r.routes[cmd.Name]
	}
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	if cmd.Mention != "" && r.config.BotUsername != "" &&
		!strings.EqualFold(cmd.Mention, r.config.BotUsername) {
		return nil
	}
	if route.Filter != nil && !route.Filter.MatchString(msg.Text) {
		r.logger.Debug("router: message rejected by filter", "command", cmd.Name, "chat_id", msg.Chat.ID)
		return nil
	}

	r.config.Metrics.CommandReceived(cmd.Name)

	if route.RateLimited {
		if err := r.config.RateLimiter.Allow(msg.Channel + ":" + msg.Chat.ID); err != nil {
			r.config.Metrics.RateLimited()
			r.logger.Warn("router: command rate limited",
				"command", cmd.Name,
				"channel", msg.Channel,
				"chat_id", msg.Chat.ID,
			)
			if sendErr := r.config.ResponseSender.Send(ctx, msg.Reply(RateLimitedText)); sendErr != nil {
				r.logger.Error("router: sending rate limit reply failed", "error", sendErr)
			}
			return err
		}
	}

	req := Request{
		ID:      uuid.NewString(),
		Command: cmd.Name,
		Args:    cmd.Args,
		Message: msg,
	}
	if len(cmd.Args) > 0 {
		req.Argument = cmd.Args[0]
	}

	r.logger.Debug("router: dispatching command",
		"command", cmd.Name,
		"request_id", req.ID,
		"chat_id", msg.Chat.ID,
		"sender", msg.Sender.Label(),
	)
	route.Handler(ctx, req)
	return nil
}

// Stop refuses further messages and cancels handler contexts.
func (r *Router) Stop(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	r.cancel()
	r.logger.Info("router: stopped")
}
