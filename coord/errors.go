package coord

import "errors"

// ErrNoCurrentFocus is returned by EvaluateCurrent when a CURRENT component
// is requested strictly but no focus has been set yet.
var ErrNoCurrentFocus = errors.New("coord: no current focus")

// ErrIncomplete is returned by CheckFullyDefined when a required axis still
// holds Wildcard.
var ErrIncomplete = errors.New("coord: filter is missing a required axis")

// ErrParse is returned by Parse on malformed input.
var ErrParse = errors.New("coord: parse error")
