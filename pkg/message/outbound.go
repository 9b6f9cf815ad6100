package message

// Format selects how a channel renders OutboundMessage.Text.
type Format int

const (
	// FormatPlain sends the text as is.
	FormatPlain Format = iota
	// FormatCode renders the text inside a preformatted code block. Channels
	// escape it for their markup and may split it over several messages,
	// each chunk carrying its own block.
	FormatCode
)

// OutboundMessage represents a message to be sent through a channel.
type OutboundMessage struct {
	// Channel is the module ID of the destination channel.
	Channel   string `json:"channel"`
	Chat      Chat   `json:"chat"`
	ReplyToID string `json:"reply_to_id,omitempty"`

	// Header is an optional plain line shown above a FormatCode body.
	Header string `json:"header,omitempty"`
	Text   string `json:"text"`
	Format Format `json:"format,omitempty"`

	Hints *OutboundHints `json:"hints,omitempty"`
}

// OutboundHints carries optional delivery hints for channels.
type OutboundHints struct {
	DisablePreview      bool `json:"disable_preview,omitempty"`
	DisableNotification bool `json:"disable_notification,omitempty"`
}
