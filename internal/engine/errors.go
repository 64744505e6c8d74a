package engine

import "errors"

// Sentinel kinds for engine errors.
var (
	// ErrInputUnavailable means the log could not be opened or read; no results are returned.
	ErrInputUnavailable = errors.New("input unavailable")
	// ErrAborted means the caller cancelled the run.
	ErrAborted = errors.New("digest aborted")
)
