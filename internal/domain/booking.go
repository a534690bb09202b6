package domain

import "time"

// BookingStatus enumerates the booking lifecycle states. StatusPending is
// part of the vocabulary for forward compatibility but is never assigned by
// the reserve flow: successful reservations are created directly as
// confirmed, so only {confirmed, cancelled} are reachable today.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is a reservation of one configured slot of an item on a specific
// date. Bookings are never deleted; cancellation is a status transition so
// the record stays available as an audit trail.
type Booking struct {
	ID          int64         `json:"id"`
	ItemID      int64         `json:"item_id"`
	UserID      int64         `json:"user_id"`
	BookingDate time.Time     `json:"booking_date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	Quantity    int           `json:"quantity"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Overlaps reports whether the booking's [start, end) interval overlaps the
// given [startTime, endTime) interval under the half-open rule: a booking
// ending exactly when a slot starts does not conflict. "HH:MM" strings are
// zero-padded, so lexicographic comparison orders them correctly.
func (b Booking) Overlaps(startTime, endTime string) bool {
	return b.StartTime < endTime && b.EndTime > startTime
}
