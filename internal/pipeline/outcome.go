package pipeline

import (
	"errors"
	"strings"

	"github.com/flemzord/bootunpack/internal/fetch"
	"github.com/flemzord/bootunpack/internal/unpack"
)

// Reply texts.
const (
	StartText          = "use /unpack <download_link> to process a boot.img file\nSupports Filebin + GitHub"
	UsageText          = "Usage: /unpack <download_link>"
	InvalidURLText     = "Please provide a valid URL starting with http:// or https:// !"
	HostNotAllowedText = "This download host is not allowed."
	AckText            = "Downloading and processing the boot image..."
	ResultHeader       = "Magiskboot output:"
	NoOutputText       = "magiskboot produced no output"
)

// Kind classifies how a request ended.
type Kind string

// Outcome kinds.
const (
	KindOK              Kind = "ok"
	KindFetchError      Kind = "fetch_error"
	KindInvocationError Kind = "invocation_error"
	KindUnexpectedError Kind = "unexpected_error"
	KindRejected        Kind = "rejected"
)

// Outcome is the tagged result of one request. It becomes text only when
// the reply is built.
type Outcome struct {
	Kind   Kind
	Output string
	Err    error
}

// Text renders the outcome as the body of the result reply.
func (o Outcome) Text() string {
	switch o.Kind {
	case KindOK:
		if out := strings.TrimSpace(o.Output); out != "" {
			return out
		}
		return NoOutputText
	case KindInvocationError:
		text := "Error processing boot image: " + strings.TrimSpace(o.Output)
		var exitErr *unpack.ExitError
		if errors.As(o.Err, &exitErr) && exitErr.TimedOut {
			text += "\n(magiskboot was stopped after " + exitErr.Timeout.String() + ")"
		}
		return text
	case KindRejected:
		return "An error occurred: " + rejectReason(o.Err)
	default:
		return "An error occurred: " + errText(o.Err)
	}
}

// Detail is a short single-line description for logs and history.
func (o Outcome) Detail() string {
	switch o.Kind {
	case KindOK:
		return ""
	case KindInvocationError:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "invocation failed"
	default:
		return errText(o.Err)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrQueueFull):
		return "too many boot images are being processed, please try again later"
	case errors.Is(err, ErrPoolStopped):
		return "the bot is shutting down, please try again later"
	default:
		return errText(err)
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// fetchOutcome classifies a download failure.
func fetchOutcome(err error) Outcome {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		return Outcome{Kind: KindFetchError, Err: err}
	}
	return Outcome{Kind: KindUnexpectedError, Err: err}
}

// invokeOutcome classifies the result of a tool run.
func invokeOutcome(output string, err error) Outcome {
	if err == nil {
		return Outcome{Kind: KindOK, Output: output}
	}
	var exitErr *unpack.ExitError
	if errors.As(err, &exitErr) {
		return Outcome{Kind: KindInvocationError, Output: exitErr.Output, Err: err}
	}
	return Outcome{Kind: KindUnexpectedError, Output: output, Err: err}
}
