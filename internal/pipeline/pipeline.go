package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/bootunpack/internal/fetch"
	"github.com/flemzord/bootunpack/internal/history"
	"github.com/flemzord/bootunpack/internal/router"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/internal/telemetry"
	"github.com/flemzord/bootunpack/internal/workspace"
	"github.com/flemzord/bootunpack/pkg/message"
)

// DefaultFileName is the name of the downloaded image inside the scratch
// directory.
const DefaultFileName = "boot.img"

// replyTimeout bounds delivery of the result reply, which is sent even
// when the worker context has been cancelled.
const replyTimeout = 30 * time.Second

var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// Fetcher downloads a URL into a file.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dst string) (fetch.File, error)
}

// Invoker runs the unpack tool on a file inside dir.
type Invoker interface {
	Invoke(ctx context.Context, dir, file string) (string, error)
}

// Config wires a Pipeline.
type Config struct {
	Fetcher   Fetcher
	Invoker   Invoker
	Workspace *workspace.Workspace
	Pool      *Pool
	Sender    router.ResponseSender

	// Optional collaborators.
	URLFilter *security.URLFilter
	Redactor  *security.Redactor
	History   history.Store
	Metrics   *telemetry.Metrics
	Tracer    trace.Tracer
	Logger    *slog.Logger

	FileName string
}

// Pipeline handles the /start and /unpack commands.
type Pipeline struct {
	fetcher   Fetcher
	invoker   Invoker
	workspace *workspace.Workspace
	pool      *Pool
	sender    router.ResponseSender
	filter    *security.URLFilter
	redactor  *security.Redactor
	history   history.Store
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
	fileName  string
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case cfg.Invoker == nil:
		return nil, errors.New("pipeline: invoker is required")
	case cfg.Workspace == nil:
		return nil, errors.New("pipeline: workspace is required")
	case cfg.Pool == nil:
		return nil, errors.New("pipeline: pool is required")
	case cfg.Sender == nil:
		return nil, errors.New("pipeline: sender is required")
	}

	p := &Pipeline{
		fetcher:   cfg.Fetcher,
		invoker:   cfg.Invoker,
		workspace: cfg.Workspace,
		pool:      cfg.Pool,
		sender:    cfg.Sender,
		filter:    cfg.URLFilter,
		redactor:  cfg.Redactor,
		history:   cfg.History,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger,
		fileName:  cfg.FileName,
	}
	if p.redactor == nil {
		p.redactor = security.NewRedactor()
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer(telemetry.TracerName)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.fileName == "" {
		p.fileName = DefaultFileName
	}
	return p, nil
}

// Routes returns the router bindings for the commands this pipeline serves.
func (p *Pipeline) Routes() []router.Route {
	return []router.Route{
		{Command: "start", Handler: p.HandleStart},
		{
			Command:     "unpack",
			// Command names are matched case-insensitively by the router.
			Filter:      regexp.MustCompile(`(?i)^/unpack(@\w+)?\s+`),
			RateLimited: true,
			Handler:     p.Handle,
		},
	}
}

// HandleStart answers /start with the usage text.
func (p *Pipeline) HandleStart(ctx context.Context, req router.Request) {
	p.reply(ctx, req, req.Message.Reply(StartText))
}

// Validate checks the /unpack argument. It returns one of the validation
// sentinel errors.
func (p *Pipeline) Validate(arg string) error {
	if arg == "" {
		return ErrMissingArgument
	}
	if !urlPattern.MatchString(arg) {
		return ErrInvalidURL
	}
	if p.filter != nil {
		if err := p.filter.Check(arg); err != nil {
			return fmt.Errorf("%w: %w", ErrHostNotAllowed, err)
		}
	}
	return nil
}

// Handle answers /unpack. It runs on the receiving goroutine and returns
// as soon as the work is queued.
func (p *Pipeline) Handle(ctx context.Context, req router.Request) {
	logger := p.requestLogger(req)

	if err := p.Validate(req.Argument); err != nil {
		logger.Info("unpack request rejected", "reason", err)
		p.reply(ctx, req, req.Message.Reply(validationText(err)))
		return
	}

	p.reply(ctx, req, req.Message.Reply(AckText))

	started := time.Now()
	err := p.pool.TrySubmit(func(ctx context.Context) {
		p.process(ctx, req, started)
	})
	if err != nil {
		logger.Warn("unpack request not queued", "error", err)
		p.finish(ctx, req, Outcome{Kind: KindRejected, Err: err}, fetch.File{}, started)
		return
	}
	logger.Debug("unpack request queued", "queued", p.pool.Stats().Queued)
}

func validationText(err error) string {
	switch {
	case errors.Is(err, ErrMissingArgument):
		return UsageText
	case errors.Is(err, ErrHostNotAllowed):
		return HostNotAllowedText
	default:
		return InvalidURLText
	}
}

// process runs on a worker.
func (p *Pipeline) process(ctx context.Context, req router.Request, started time.Time) {
	ctx, span := p.tracer.Start(ctx, "unpack.request", trace.WithAttributes(
		attribute.String("request.id", req.ID),
		attribute.String("chat.id", req.Message.Chat.ID),
		attribute.String("url", p.redactor.RedactURL(req.Argument)),
	))
	defer span.End()

	outcome, file := p.run(ctx, req)

	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	if outcome.Kind != KindOK {
		span.SetStatus(codes.Error, outcome.Detail())
	}
	p.finish(ctx, req, outcome, file, started)
}

// run performs the fetch and invoke steps inside a fresh scratch
// directory. The directory is removed on every path, including panics.
func (p *Pipeline) run(ctx context.Context, req router.Request) (out Outcome, file fetch.File) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Kind: KindUnexpectedError, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	scratch, err := p.workspace.Acquire()
	if err != nil {
		return Outcome{Kind: KindUnexpectedError, Err: err}, file
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			p.requestLogger(req).Warn("scratch cleanup failed", "error", err)
		}
	}()

	dst, err := scratch.Path(p.fileName)
	if err != nil {
		return Outcome{Kind: KindUnexpectedError, Err: err}, file
	}

	fetchCtx, span := p.tracer.Start(ctx, "unpack.fetch")
	t0 := time.Now()
	file, err = p.fetcher.Fetch(fetchCtx, req.Argument, dst)
	p.metrics.ObserveStage("fetch", time.Since(t0))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		span.End()
		return fetchOutcome(err), file
	}
	span.SetAttributes(
		attribute.Int64("file.size", file.Size),
		attribute.String("file.blake3", file.Digest),
	)
	span.End()
	p.metrics.AddDownloaded(file.Size)

	invokeCtx, span := p.tracer.Start(ctx, "unpack.invoke")
	t0 = time.Now()
	output, err := p.invoker.Invoke(invokeCtx, scratch.Dir(), file.Path)
	p.metrics.ObserveStage("invoke", time.Since(t0))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoke failed")
	}
	span.End()

	return invokeOutcome(output, err), file
}

// finish sends the single result reply and records the request.
func (p *Pipeline) finish(ctx context.Context, req router.Request, outcome Outcome, file fetch.File, started time.Time) {
	elapsed := time.Since(started)

	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	p.reply(replyCtx, req, req.Message.CodeReply(ResultHeader, outcome.Text()))

	p.metrics.ObserveOutcome(string(outcome.Kind), elapsed)

	logger := p.requestLogger(req)
	if outcome.Kind == KindOK {
		logger.Info("unpack request completed", "bytes", file.Size, "duration", elapsed)
	} else {
		logger.Warn("unpack request failed", "outcome", outcome.Kind, "error", outcome.Detail(), "duration", elapsed)
	}

	if p.history == nil {
		return
	}
	rec := history.Record{
		ID:        req.ID,
		Channel:   req.Message.Channel,
		ChatID:    req.Message.Chat.ID,
		SenderID:  req.Message.Sender.ID,
		URL:       p.redactor.RedactURL(req.Argument),
		Outcome:   string(outcome.Kind),
		Detail:    history.TruncateDetail(p.redactor.Redact(outcome.Detail())),
		Digest:    file.Digest,
		Bytes:     file.Size,
		StartedAt: started,
		Duration:  elapsed,
	}
	if err := p.history.Append(replyCtx, rec); err != nil {
		logger.Warn("recording request history failed", "error", err)
	}
}

func (p *Pipeline) reply(ctx context.Context, req router.Request, msg message.OutboundMessage) {
	if err := p.sender.Send(ctx, msg); err != nil {
		p.metrics.SendFailed(msg.Channel)
		p.requestLogger(req).Error("sending reply failed", "error", err)
	}
}

func (p *Pipeline) requestLogger(req router.Request) *slog.Logger {
	return p.logger.With(
		"request_id", req.ID,
		"chat_id", req.Message.Chat.ID,
		"command", req.Command,
	)
}

// Stats returns the worker pool state.
func (p *Pipeline) Stats() PoolStats {
	return p.pool.Stats()
}
