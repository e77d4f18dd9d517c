package allocator

import "errors"

var (
	// ErrNoInventory is returned when the caller has no gem with positive availability.
	ErrNoInventory = errors.New("no gems available in inventory")
	// ErrUnreachable is returned when the strategy cannot match the target exactly.
	ErrUnreachable = errors.New("target value cannot be matched exactly with available gems")
	// ErrInvalidStrategy is returned for an unrecognised strategy identifier.
	ErrInvalidStrategy = errors.New("unknown allocation strategy")
	// ErrInvalidTarget is returned when the target is not a finite number in (Tolerance, MaxTarget].
	ErrInvalidTarget = errors.New("target value must be a finite number greater than zero and within the allowed maximum")
	// ErrValidation is returned when a produced allocation fails the post-allocation checks.
	ErrValidation = errors.New("allocation failed validation")
	// ErrTargetTooLarge is returned when the exact solver's table would exceed its bound.
	ErrTargetTooLarge = errors.New("target value exceeds the exact solver limit")
)
