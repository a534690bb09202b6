package service

import "errors"

// Predefined errors for the booking, pricing and tax services. Store-level
// not-found errors (store.ErrItemNotFound etc.) propagate through unchanged;
// the sentinels here cover validation and business-rule outcomes so handlers
// can map each class to its own HTTP status with errors.Is.
var (
	// Validation errors (bad input, never retried)
	ErrInvalidTime     = errors.New("service: time must be a 24-hour HH:MM string")
	ErrInvalidQuantity = errors.New("service: quantity must be at least 1")

	// Business-rule violations
	ErrItemNotBookable    = errors.New("service: item is not bookable")
	ErrDayNotAvailable    = errors.New("service: item is not available on this day")
	ErrInvalidTimeSlot    = errors.New("service: invalid time slot")
	ErrOverlappingTiers   = errors.New("service: overlapping pricing tiers detected")
	ErrNoMatchingTier     = errors.New("service: no matching tier found for quantity")
	ErrNotAvailableNow    = errors.New("service: item not available at the requested time")
	ErrInvalidPricingType = errors.New("service: invalid pricing type")

	// Conflict: the slot is deliberately full. Distinct from the transient
	// store.ErrTxConflict, which callers may retry.
	ErrSlotFull = errors.New("service: slot is fully booked")

	// Ownership
	ErrForbidden        = errors.New("service: bookings can only be cancelled by their owner")
	ErrAlreadyCancelled = errors.New("service: booking is already cancelled")
)
