package files

import "errors"

var (
	// ErrInvalidID is returned for ids that are not uuids.
	ErrInvalidID = errors.New("invalid report id")
	// ErrNotFound is returned when no report exists for an id.
	ErrNotFound = errors.New("report not found")
	// ErrStorage wraps filesystem failures.
	ErrStorage = errors.New("storage failure")
)
