package fetch

import "errors"

// Sentinel causes wrapped by *Error.
var (
	// ErrStatus indicates the server answered with a non-2xx status.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrTooLarge indicates the body exceeded the configured size cap.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// Error is returned for every download failure. Its message is shown to
// the requester verbatim, so it never contains more than the cause.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return "error downloading file: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
