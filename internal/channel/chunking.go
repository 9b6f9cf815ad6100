package channel

import (
	"strings"

	"github.com/flemzord/bootunpack/pkg/message"
)

// ChunkConfig controls how outbound text is split when it exceeds a
// platform's maximum message length.
type ChunkConfig struct {
	// MaxLength is the maximum size of a chunk as reported by Measure.
	// A value <= 0 means no splitting.
	MaxLength int

	// Measure returns the rendered size of a piece of text. Channels that
	// escape text before sending pass a function that accounts for the
	// escapes. Defaults to len.
	Measure func(string) int
}

func (c ChunkConfig) measure(s string) int {
	if c.Measure != nil {
		return c.Measure(s)
	}
	return len(s)
}

// SplitMessage splits msg.Text into several messages that each respect
// cfg.MaxLength. Every chunk keeps the routing fields of msg; the header,
// if any, is only kept on the first chunk.
func SplitMessage(msg message.OutboundMessage, cfg ChunkConfig) []message.OutboundMessage {
	chunks := SplitText(msg.Text, cfg)
	if len(chunks) <= 1 {
		return []message.OutboundMessage{msg}
	}

	result := make([]message.OutboundMessage, len(chunks))
	for i, chunk := range chunks {
		out := msg
		out.Text = chunk
		if i > 0 {
			out.Header = ""
		}
		result[i] = out
	}
	return result
}

// SplitText breaks text into chunks of at most cfg.MaxLength, preferring
// line boundaries. Lines longer than the limit are split on rune boundaries.
func SplitText(text string, cfg ChunkConfig) []string {
	if cfg.MaxLength <= 0 || cfg.measure(text) <= cfg.MaxLength {
		return []string{text}
	}

	var (
		chunks      []string
		current     strings.Builder
		currentSize int
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			currentSize = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lineWithNewline := line + "\n"
		lineSize := cfg.measure(lineWithNewline)

		if currentSize+lineSize > cfg.MaxLength {
			flush()

			if lineSize > cfg.MaxLength {
				chunks = append(chunks, forceSplit(line, cfg)...)
				continue
			}
		}

		current.WriteString(lineWithNewline)
		currentSize += lineSize
	}
	flush()

	return chunks
}

// forceSplit breaks a single long line into pieces of at most cfg.MaxLength
// without cutting a UTF-8 sequence in half.
func forceSplit(line string, cfg ChunkConfig) []string {
	var (
		parts []string
		start int
		size  int
	)
	for i, r := range line {
		runeSize := cfg.measure(string(r))
		if size+runeSize > cfg.MaxLength && i > start {
			parts = append(parts, line[start:i])
			start = i
			size = 0
		}
		size += runeSize
	}
	if start < len(line) {
		parts = append(parts, line[start:])
	}
	return parts
}
