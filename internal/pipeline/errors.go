// Package pipeline validates /unpack requests and runs the download and
// unpack work on a bounded worker pool, replying exactly once with the
// result.
package pipeline

import "errors"

// Validation errors. They are answered on the receiving goroutine; no
// scratch directory or worker is used.
var (
	ErrMissingArgument = errors.New("pipeline: missing download link")
	ErrInvalidURL      = errors.New("pipeline: link is not an http(s) URL")
	ErrHostNotAllowed  = errors.New("pipeline: download host not allowed")
)

// Pool errors.
var (
	// ErrQueueFull indicates every worker is busy and the queue is at
	// capacity.
	ErrQueueFull = errors.New("pipeline: job queue full")

	// ErrPoolStopped indicates the pool no longer accepts work.
	ErrPoolStopped = errors.New("pipeline: worker pool stopped")
)
