package channel

import "errors"

// Sentinel errors for channel operations.
var (
	// ErrNoChannel means an outbound message names a channel the dispatcher
	// does not know.
	ErrNoChannel = errors.New("channel: unknown channel")

	// ErrDuplicateChannel means the dispatcher already holds that name.
	ErrDuplicateChannel = errors.New("channel: duplicate channel name")

	// ErrNoInbox means the router never connected to the channel.
	ErrNoInbox = errors.New("channel: inbox not set")

	// ErrDenied means the allow-list rejected the sender.
	ErrDenied = errors.New("channel: sender not allowed")

	// ErrNotStarted means Send was called before the platform connection
	// existed.
	ErrNotStarted = errors.New("channel: not started")

	// ErrInvalidReply means an outbound message has no chat or no content.
	ErrInvalidReply = errors.New("channel: reply has no chat or no content")
)
