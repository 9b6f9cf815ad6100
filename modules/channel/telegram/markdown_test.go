package telegram

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "plain text no special chars", input: "Hello world", want: "Hello world"},
		{
			name:  "all special characters",
			input: `_*[]()~` + "`" + `>#+-=|{}.!`,
			want:  `\_\*\[\]\(\)\~` + "\\`" + `\>\#\+\-\=\|\{\}\.\!`,
		},
		{name: "backslash", input: `a\b`, want: `a\\b`},
		{name: "header line", input: "Magiskboot output:", want: "Magiskboot output:"},
		{name: "parentheses in URL", input: "https://example.com/path(1)", want: `https://example\.com/path\(1\)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EscapeMarkdownV2(tt.input); got != tt.want {
				t.Errorf("EscapeMarkdownV2(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeMarkdownV2Code(t *testing.T) {
	t.Parallel()

	in := "KERNEL_SZ [12345] (ok) `x` \\n"
	want := "KERNEL_SZ [12345] (ok) \\`x\\` \\\\n"
	if got := EscapeMarkdownV2Code(in); got != want {
		t.Errorf("EscapeMarkdownV2Code(%q) = %q, want %q", in, got, want)
	}
}

func TestCodeBlock(t *testing.T) {
	t.Parallel()

	got := CodeBlock("Magiskboot output:", "HEADER_VER [4]")
	want := "Magiskboot output:\n```\nHEADER_VER [4]\n```"
	if got != want {
		t.Errorf("CodeBlock = %q, want %q", got, want)
	}

	if got := CodeBlock("", "abc"); got != "```\nabc\n```" {
		t.Errorf("CodeBlock without header = %q", got)
	}
}

func TestTextLength(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":      0,
		"abc":   3,
		"é":     1,
		"😀":     2,
		"a😀b":   4,
		"日本語": 3,
	}
	for in, want := range tests {
		if got := textLength(in); got != want {
			t.Errorf("textLength(%q) = %d, want %d", in, got, want)
		}
	}
}
