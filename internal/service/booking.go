package service

import (
	"context"
	"errors"
	"time"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"
)

// SlotAvailability reports the capacity figures of one configured slot for
// one day.
type SlotAvailability struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Available         bool   `json:"available"`
	MaxCapacity       int    `json:"max_capacity"`
	RemainingCapacity int    `json:"remaining_capacity"`
	BookedCount       int    `json:"booked_count"`
}

// AvailabilityResult is the per-day availability of a bookable item.
// Available/Message are only set on the short-circuit "wrong weekday" path.
type AvailabilityResult struct {
	Date      time.Time          `json:"date"`
	Day       string             `json:"day"`
	Available *bool              `json:"available,omitempty"`
	Message   string             `json:"message,omitempty"`
	Slots     []SlotAvailability `json:"slots"`
}

// BookingService computes slot availability and owns the atomic reserve and
// cancel operations. It is stateless: construct once per process with the
// storage collaborators injected.
type BookingService struct {
	items    store.ItemStorer
	bookings store.BookingStorer
}

// NewBookingService creates a BookingService with its storage dependencies.
func NewBookingService(items store.ItemStorer, bookings store.BookingStorer) *BookingService {
	return &BookingService{items: items, bookings: bookings}
}

// GetAvailableSlots computes per-slot capacity for an item on the given
// date. When the item's schedule excludes the date's weekday, the result
// carries Available=false with an empty slot list and no error.
func (s *BookingService) GetAvailableSlots(ctx context.Context, itemID int64, date time.Time) (*AvailabilityResult, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsBookable {
		return nil, ErrItemNotBookable
	}

	day := domain.DayName(date)
	if !item.Availability.HasDay(day) {
		notAvailable := false
		return &AvailabilityResult{
			Date:      date,
			Day:       day,
			Available: &notAvailable,
			Message:   "Item is not available on this day",
			Slots:     []SlotAvailability{},
		}, nil
	}

	slots := make([]SlotAvailability, 0, len(item.Availability.TimeSlots))
	for _, slot := range item.Availability.TimeSlots {
		conflicts, err := s.bookings.FindOverlapping(ctx, itemID, date, slot.StartTime, slot.EndTime, true)
		if err != nil {
			return nil, err
		}
		bookedCount := len(conflicts)
		maxCapacity := slot.MaxCapacity()
		slots = append(slots, SlotAvailability{
			StartTime:         slot.StartTime,
			EndTime:           slot.EndTime,
			Available:         bookedCount < maxCapacity,
			MaxCapacity:       maxCapacity,
			RemainingCapacity: maxCapacity - bookedCount,
			BookedCount:       bookedCount,
		})
	}

	return &AvailabilityResult{Date: date, Day: day, Slots: slots}, nil
}

// BookSlot reserves one configured slot of an item for a user. The conflict
// count and the insert run inside a single serializable transaction, so two
// concurrent calls on the same item/date/slot can never both succeed once
// the slot is full: the loser fails with ErrSlotFull, or with the retryable
// store.ErrTxConflict when the transaction itself is aborted.
func (s *BookingService) BookSlot(ctx context.Context, itemID, userID int64, date time.Time, startTime, endTime string, quantity int) (*domain.Booking, error) {
	if !domain.IsClockTime(startTime) || !domain.IsClockTime(endTime) {
		return nil, ErrInvalidTime
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var booking *domain.Booking
	err := s.bookings.InTx(ctx, func(tx store.BookingStorer) error {
		item, err := s.items.GetItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsBookable {
			return ErrItemNotBookable
		}
		if !item.Availability.HasDay(domain.DayName(date)) {
			return ErrDayNotAvailable
		}

		slot, ok := item.Availability.FindSlot(startTime, endTime)
		if !ok {
			return ErrInvalidTimeSlot
		}

		conflicts, err := tx.FindOverlapping(ctx, itemID, date, startTime, endTime, true)
		if err != nil {
			return err
		}
		if len(conflicts) >= slot.MaxCapacity() {
			return ErrSlotFull
		}

		created, err := tx.InsertBooking(ctx, &domain.Booking{
			ItemID:      itemID,
			UserID:      userID,
			BookingDate: date,
			StartTime:   startTime,
			EndTime:     endTime,
			Quantity:    quantity,
			Status:      domain.StatusConfirmed,
		})
		if err != nil {
			return err
		}
		booking = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking transitions a booking to cancelled. The record is never
// deleted; capacity frees up implicitly because cancelled bookings stop
// counting as conflicts.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrForbidden
	}
	if booking.Status == domain.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	updated, err := s.bookings.UpdateBookingStatus(ctx, bookingID, booking.Status, domain.StatusCancelled)
	if err != nil {
		// The compare-and-set found no row in the expected status: the
		// booking was cancelled by a concurrent request after our read.
		if errors.Is(err, store.ErrBookingNotFound) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}
	return updated, nil
}
