package entity

import "errors"

// Domain errors for capacity
var (
	// Validation errors
	ErrInvalidStatus         = errors.New("invalid job status")
	ErrInvalidProductionType = errors.New("invalid production type")
	ErrInvalidView           = errors.New("invalid view, expected day, week, month or all")
	ErrInvalidDate           = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidCapacity       = errors.New("capacity must not be negative")
	ErrNegativeQuantity      = errors.New("points and quantity must not be negative")

	// Business logic errors
	ErrJobNotFound               = errors.New("production job not found")
	ErrMalformedWorkCalculations = errors.New("malformed work calculations")
	ErrForbidden                 = errors.New("role is not allowed to perform this action")
	ErrSnapshotStoreUnavailable  = errors.New("snapshot storage is not configured")
)
