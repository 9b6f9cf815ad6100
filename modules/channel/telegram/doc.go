// Package telegram implements the Telegram Bot API channel.
//
// It bridges Telegram long polling and the platform-agnostic message model:
//
//   - Inbound text messages are converted and pushed to the router inbox
//   - Commands addressed to another bot (/cmd@other_bot) are dropped
//   - Outbound code replies are rendered as MarkdownV2 pre blocks and split
//     over several messages when they exceed the message length limit
//   - Flood-control (429) responses are retried after the advertised delay
//
// The module registers itself as "channel.telegram" via init() and talks to
// the Bot API through github.com/go-telegram-bot-api/telegram-bot-api/v5.
package telegram
