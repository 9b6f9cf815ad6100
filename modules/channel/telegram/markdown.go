package telegram

import (
	"strings"
	"unicode/utf16"
)

// markdownV2SpecialChars lists all characters that must be escaped in Telegram MarkdownV2.
var markdownV2SpecialChars = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// Inside pre and code entities only the backtick and the backslash are special.
var markdownV2CodeChars = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
)

// EscapeMarkdownV2 escapes all special characters for Telegram MarkdownV2 format.
// Special chars: \ _ * [ ] ( ) ~ ` > # + - = | { } . !
func EscapeMarkdownV2(text string) string {
	return markdownV2SpecialChars.Replace(text)
}

// EscapeMarkdownV2Code escapes text for use inside a pre block.
func EscapeMarkdownV2Code(text string) string {
	return markdownV2CodeChars.Replace(text)
}

// CodeBlock renders body as a MarkdownV2 pre block, preceded by header on
// its own line when header is not empty.
func CodeBlock(header, body string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(EscapeMarkdownV2(header))
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
	b.WriteString(EscapeMarkdownV2Code(body))
	b.WriteString("\n```")
	return b.String()
}

// textLength measures text the way Telegram counts message length, in
// UTF-16 code units after entity parsing.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
