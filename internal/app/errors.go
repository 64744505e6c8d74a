package service

import "errors"

var (
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrReport means the workbook could not be rendered or stored.
	ErrReport = errors.New("report generation failed")
)
