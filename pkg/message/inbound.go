package message

import (
	"encoding/json"
	"time"
)

// InboundMessage represents a text message received from a channel.
type InboundMessage struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Channel   string          `json:"channel"`
	Sender    Sender          `json:"sender"`
	Chat      Chat            `json:"chat"`
	Text      string          `json:"text"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Reply builds a plain-text reply threaded to m.
func (m *InboundMessage) Reply(text string) OutboundMessage {
	return OutboundMessage{
		Channel:   m.Channel,
		Chat:      m.Chat,
		ReplyToID: m.ID,
		Text:      text,
	}
}

// CodeReply builds a reply whose body is rendered as a preformatted block
// under a plain header line.
func (m *InboundMessage) CodeReply(header, body string) OutboundMessage {
	out := m.Reply(body)
	out.Header = header
	out.Format = FormatCode
	return out
}
