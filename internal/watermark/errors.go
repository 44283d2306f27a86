package watermark

import "errors"

var (
	// ErrEmptyImage is returned for a nil or zero-area source, or one whose
	// channel count or pixel data is inconsistent.
	ErrEmptyImage = errors.New("empty or invalid source image")

	// ErrMaskSize is returned when a user mask does not match the source
	// dimensions and resizing is disabled.
	ErrMaskSize = errors.New("user mask size does not match image")

	// ErrFill wraps any failure of the fill strategy.
	ErrFill = errors.New("region fill failed")
)
