package types

import "github.com/pkg/errors"

var (
	// ErrInvalidInterval marks a malformed or hourly interval string.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrNoBarIntervals is returned when a stream request contains only the
	// quotes sentinel and no bar intervals.
	ErrNoBarIntervals = errors.New("no bar intervals requested")

	// ErrOutOfOrderBar is returned when a bar's timestamp is not strictly
	// after the last appended bar of the same (symbol, interval).
	ErrOutOfOrderBar = errors.New("bar timestamp out of order")

	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrDuplicateSymbol = errors.New("symbol already active")

	// ErrValidationFailed is the per-symbol provisioning validation failure.
	ErrValidationFailed = errors.New("validation failed")

	// ErrAllSymbolsFailed is the batch-level failure when every symbol in a
	// provisioning batch fails validation.
	ErrAllSymbolsFailed = errors.New("all symbols failed validation")

	ErrIndicatorNotFound = errors.New("indicator not found")
)
