package router

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want ParsedCommand
		ok   bool
	}{
		{text: "/start", want: ParsedCommand{Name: "start", Args: []string{}}, ok: true},
		{text: "/unpack https://x.io/a b", want: ParsedCommand{Name: "unpack", Args: []string{"https://x.io/a", "b"}}, ok: true},
		{text: "/unpack@MyBot\thttps://x.io/a", want: ParsedCommand{Name: "unpack", Mention: "MyBot", Args: []string{"https://x.io/a"}}, ok: true},
		{text: "/UNPACK x", want: ParsedCommand{Name: "unpack", Args: []string{"x"}}, ok: true},
		{text: "/unpack\n\nhttps://x.io/a", want: ParsedCommand{Name: "unpack", Args: []string{"https://x.io/a"}}, ok: true},
		{text: "hello /start", ok: false},
		{text: "/", ok: false},
		{text: "/@bot", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseCommand(tt.text)
			if ok != tt.ok {
				t.Fatalf("ParseCommand(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}
