package reconcile

import "errors"

// Error kinds returned by the reconciler. Callers compare with errors.Is; the
// wrapped message says what was wrong with which input.
var (
	// ErrParse reports malformed or unreadable input.
	ErrParse = errors.New("parse error")

	// ErrColumnRecognition reports that no date or rate column could be
	// recognized in a rate table.
	ErrColumnRecognition = errors.New("column recognition failed")

	// ErrMissingColumn reports a series without the date or rate data the join
	// needs.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyResult reports a filter that matched no rows.
	ErrEmptyResult = errors.New("empty result")

	// ErrInsufficientData reports an aggregation over an empty record set.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParameter reports an out-of-range threshold, percentile or
	// window.
	ErrInvalidParameter = errors.New("invalid parameter")
)
