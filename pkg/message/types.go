// Package message defines the platform-agnostic contract between chat
// channels and the command router.
package message

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
	// ChatBroadcast is a one-to-many broadcast channel.
	ChatBroadcast ChatType = "broadcast"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Label returns a short human-readable name for logs: "@username" when
// known, then the display name, then the platform ID.
func (s Sender) Label() string {
	switch {
	case s.Username != "":
		return "@" + s.Username
	case s.DisplayName != "":
		return s.DisplayName
	default:
		return s.ID
	}
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether replies in the chat are seen by other members.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup || c.Type == ChatBroadcast
}
