package app

import "errors"

// Sentinel kinds for cycle orchestration errors.
var (
	// ErrScopeBusy means a sync cycle or maintenance pass already holds the
	// scope. Acquisition fails fast; the scheduler skips the tick.
	ErrScopeBusy = errors.New("scope busy")
)
