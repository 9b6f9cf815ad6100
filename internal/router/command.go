package router

import (
	"strings"
	"unicode"
)

// ParsedCommand is the result of parsing a "/name@bot arg ..." message.
type ParsedCommand struct {
	Name    string
	Mention string
	Args    []string
}

// ParseCommand extracts the command from the first token of text. It
// returns false when text does not start with a slash command.
func ParseCommand(text string) (ParsedCommand, bool) {
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ParsedCommand{}, false
	}

	name, mention, _ := strings.Cut(fields[0][1:], "@")
	if name == "" {
		return ParsedCommand{}, false
	}
	return ParsedCommand{
		Name:    strings.ToLower(name),
		Mention: mention,
		Args:    fields[1:],
	}, true
}
