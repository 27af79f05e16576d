package report

import "errors"

var (
	// ErrInvalidConfig is returned when reporter configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid reporter configuration")
)
