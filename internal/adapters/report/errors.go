package report

import "errors"

var (
	// ErrNilDigest is returned when there is nothing to render.
	ErrNilDigest = errors.New("nil digest")
	// ErrRender wraps excelize failures while building a workbook.
	ErrRender = errors.New("render workbook")
)
