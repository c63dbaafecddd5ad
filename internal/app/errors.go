package app

import "errors"

// Sentinel kinds for facade errors.
var (
	// ErrValidation marks rejected override input: an unknown pillar, a
	// score outside [0,100], or a reason outside [10,500] characters.
	// The stored record is never touched.
	ErrValidation = errors.New("validation failed")

	// ErrRecalculationFailed marks a recalculation aborted by a failing
	// signal source. The previously persisted record stays authoritative.
	ErrRecalculationFailed = errors.New("recalculation failed")
)
