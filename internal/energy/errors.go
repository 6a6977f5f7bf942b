package energy

import "errors"

var (
	// ErrPlanNotFound is returned when no current energy plan exists.
	ErrPlanNotFound = errors.New("energy: plan not found")

	// ErrInvalidSeparator is returned for decimal separators other than "," and ".".
	ErrInvalidSeparator = errors.New("energy: invalid decimal separator")
)
