// Package history records finished unpack requests for the ops gateway.
package history

import (
	"context"
	"errors"
	"time"
)

// ServiceName is the AppContext service key for the active Store.
const ServiceName = "history.store"

// ErrClosed is returned by stores that have been shut down.
var ErrClosed = errors.New("history: store closed")

// Record describes one finished request. URL is stored redacted.
type Record struct {
	ID        string        `json:"id"`
	Channel   string        `json:"channel"`
	ChatID    string        `json:"chat_id"`
	SenderID  string        `json:"sender_id"`
	URL       string        `json:"url"`
	Outcome   string        `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	Digest    string        `json:"digest,omitempty"`
	Bytes     int64         `json:"bytes"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Store persists request records.
type Store interface {
	// Append stores a record.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Prune deletes records started before the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// maxDetail bounds the stored detail text; tool output can be large.
const maxDetail = 2048

// TruncateDetail shortens s to the stored detail limit on a rune boundary.
func TruncateDetail(s string) string {
	if len(s) <= maxDetail {
		return s
	}
	cut := maxDetail
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
