package crawler

import "errors"

var (
	// ErrBusy is returned when an operation is attempted while another one
	// is running.
	ErrBusy = errors.New("another graph operation is in progress")

	// ErrDepthOutOfRange is returned for negative depths and depths above
	// the configured maximum.
	ErrDepthOutOfRange = errors.New("depth out of range")
)
