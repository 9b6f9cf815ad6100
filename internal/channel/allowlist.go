package channel

import (
	"strings"

	"github.com/flemzord/bootunpack/pkg/message"
)

// AllowList controls which users and groups may use a channel.
//
// A nil *AllowList means the channel is public and everyone is allowed.
// A non-nil AllowList built from empty lists denies everyone.
type AllowList struct {
	users  map[string]struct{}
	groups map[string]struct{}
}

// NewAllowList creates an AllowList. Entries are trimmed and lowercased so
// that usernames match regardless of case. A leading "@" is ignored.
func NewAllowList(users, groups []string) *AllowList {
	a := &AllowList{
		users:  make(map[string]struct{}, len(users)),
		groups: make(map[string]struct{}, len(groups)),
	}
	for _, u := range users {
		a.users[normalize(u)] = struct{}{}
	}
	for _, g := range groups {
		a.groups[normalize(g)] = struct{}{}
	}
	return a
}

// IsAllowed reports whether the sender (by ID or username) or the group
// chat is permitted.
func (a *AllowList) IsAllowed(msg message.InboundMessage) bool {
	if a == nil {
		return true
	}
	if _, ok := a.users[normalize(msg.Sender.ID)]; ok {
		return true
	}
	if msg.Sender.Username != "" {
		if _, ok := a.users[normalize(msg.Sender.Username)]; ok {
			return true
		}
	}
	// Group entries only match group chats, so a private chat whose ID
	// happens to equal a listed group never gets through.
	if msg.Chat.IsGroup() {
		if _, ok := a.groups[normalize(msg.Chat.ID)]; ok {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "@")
}
