package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/flemzord/bootunpack/internal/channel"
	"github.com/flemzord/bootunpack/pkg/message"
)

// convertOutbound renders msg into one or more sendMessage requests.
// Plain text is sent without a parse mode. Code replies become MarkdownV2
// pre blocks, one per chunk, with the header kept on the first chunk.
func convertOutbound(msg message.OutboundMessage, maxLength int) ([]tgbotapi.MessageConfig, error) {
	chatID, err := strconv.ParseInt(msg.Chat.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat ID %q: %w", msg.Chat.ID, err)
	}

	var replyTo int
	if msg.ReplyToID != "" {
		replyTo, err = strconv.Atoi(msg.ReplyToID)
		if err != nil {
			return nil, fmt.Errorf("telegram: invalid reply_to ID %q: %w", msg.ReplyToID, err)
		}
	}

	limit := maxLength
	if msg.Format == message.FormatCode && msg.Header != "" {
		limit -= textLength(msg.Header) + 1
	}
	if limit < 1 {
		limit = 1
	}

	chunks := channel.SplitMessage(msg, channel.ChunkConfig{
		MaxLength: limit,
		Measure:   textLength,
	})

	configs := make([]tgbotapi.MessageConfig, 0, len(chunks))
	for _, chunk := range chunks {
		var cfg tgbotapi.MessageConfig
		if chunk.Format == message.FormatCode {
			cfg = tgbotapi.NewMessage(chatID, CodeBlock(chunk.Header, chunk.Text))
			cfg.ParseMode = tgbotapi.ModeMarkdownV2
		} else {
			cfg = tgbotapi.NewMessage(chatID, chunk.Text)
		}
		cfg.ReplyToMessageID = replyTo
		cfg.AllowSendingWithoutReply = true
		if chunk.Hints != nil {
			cfg.DisableWebPagePreview = chunk.Hints.DisablePreview
			cfg.DisableNotification = chunk.Hints.DisableNotification
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// sendOutbound sends every chunk of msg in order. It stops at the first
// chunk that cannot be delivered.
func (t *Telegram) sendOutbound(ctx context.Context, msg message.OutboundMessage) error {
	bot := t.currentBot()
	if bot == nil {
		return fmt.Errorf("telegram: %w", channel.ErrNotStarted)
	}

	configs, err := convertOutbound(msg, t.config.MaxMessageLength)
	if err != nil {
		return err
	}

	for i, cfg := range configs {
		if err := t.sendWithRetry(ctx, bot, cfg); err != nil {
			return fmt.Errorf("telegram: send chunk %d/%d: %w", i+1, len(configs), err)
		}
	}
	return nil
}

// sendWithRetry sends c, waiting out flood-control responses for at most
// SendAttempts attempts. Other errors are returned at once.
func (t *Telegram) sendWithRetry(ctx context.Context, bot botAPI, c tgbotapi.Chattable) error {
	var err error
	for attempt := 1; attempt <= t.config.SendAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		_, err = bot.Send(c)
		if err == nil {
			return nil
		}

		seconds, limited := retryAfter(err)
		if !limited || attempt == t.config.SendAttempts {
			return err
		}
		wait := time.Duration(seconds) * t.retryUnit

		t.logger.Warn("telegram flood control, retrying",
			"retry_after", wait,
			"attempt", attempt,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// retryAfter extracts the flood-control delay, in seconds, from a Bot API
// error.
func retryAfter(err error) (int, bool) {
	var seconds int
	var apiErr *tgbotapi.Error
	var apiErrValue tgbotapi.Error
	switch {
	case errors.As(err, &apiErr):
		seconds = apiErr.RetryAfter
	case errors.As(err, &apiErrValue):
		seconds = apiErrValue.RetryAfter
	default:
		return 0, false
	}
	if seconds <= 0 {
		return 0, false
	}
	if seconds > maxRetryAfterSeconds {
		seconds = maxRetryAfterSeconds
	}
	return seconds, true
}
