package pipeline

import (
	"errors"
	"testing"

	"github.com/flemzord/bootunpack/internal/fetch"
	"github.com/flemzord/bootunpack/internal/unpack"
)

func TestOutcome_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{name: "ok", outcome: Outcome{Kind: KindOK, Output: "  abc\n"}, want: "abc"},
		{name: "ok empty", outcome: Outcome{Kind: KindOK, Output: ""}, want: NoOutputText},
		{
			name:    "fetch",
			outcome: Outcome{Kind: KindFetchError, Err: &fetch.Error{Err: errors.New("timeout")}},
			want:    "An error occurred: error downloading file: timeout",
		},
		{
			name:    "invocation",
			outcome: Outcome{Kind: KindInvocationError, Output: "bad magic\n", Err: &unpack.ExitError{ExitCode: 1}},
			want:    "Error processing boot image: bad magic",
		},
		{name: "unexpected", outcome: Outcome{Kind: KindUnexpectedError, Err: errors.New("x")}, want: "An error occurred: x"},
		{name: "unexpected nil", outcome: Outcome{Kind: KindUnexpectedError}, want: "An error occurred: unknown error"},
		{
			name:    "rejected",
			outcome: Outcome{Kind: KindRejected, Err: ErrQueueFull},
			want:    "An error occurred: too many boot images are being processed, please try again later",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.outcome.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	if got := fetchOutcome(&fetch.Error{Err: errors.New("x")}).Kind; got != KindFetchError {
		t.Errorf("fetch error kind = %s", got)
	}
	if got := fetchOutcome(errors.New("x")).Kind; got != KindUnexpectedError {
		t.Errorf("plain fetch failure kind = %s", got)
	}
	if got := invokeOutcome("out", nil); got.Kind != KindOK || got.Output != "out" {
		t.Errorf("ok outcome = %+v", got)
	}
	if got := invokeOutcome("", &unpack.ExitError{Output: "boom"}); got.Kind != KindInvocationError || got.Output != "boom" {
		t.Errorf("exit outcome = %+v", got)
	}
	if got := invokeOutcome("", errors.New("x")).Kind; got != KindUnexpectedError {
		t.Errorf("plain invoke failure kind = %s", got)
	}
}
