package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/metrics"
	"menu-catalog-service/internal/service"
	"menu-catalog-service/internal/store"
)

// GetItemAvailability returns the per-slot capacity of a bookable item on a
// given date (?date=YYYY-MM-DD, defaulting to today).
func (h *HTTPHandler) GetItemAvailability(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	date := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result, err := h.bookingService.GetAvailableSlots(r.Context(), itemID, date)
	if err != nil {
		respondServiceError(w, err, "Failed to compute availability")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// PriceInput defines the expected input for a price calculation.
type PriceInput struct {
	Quantity    int     `json:"quantity" validate:"omitempty,gte=1"`
	RequestTime *string `json:"request_time" validate:"omitempty"` // RFC 3339
	AddonIDs    []int64 `json:"addon_ids" validate:"omitempty,dive,gt=0"`
}

func (h *HTTPHandler) CalculateItemPrice(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	var input PriceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	pctx := service.PriceContext{Quantity: input.Quantity, AddonIDs: input.AddonIDs}
	if input.RequestTime != nil {
		parsed, err := time.Parse(time.RFC3339, *input.RequestTime)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request_time format, expected RFC 3339")
			return
		}
		pctx.RequestTime = parsed
	}

	item, err := h.itemStore.GetItemByID(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve item")
		return
	}

	breakdown, err := h.pricingService.CalculatePrice(r.Context(), item, pctx)
	if err != nil {
		respondServiceError(w, err, "Failed to calculate price")
		return
	}
	respondWithJSON(w, http.StatusOK, breakdown)
}

// BookingInput defines the expected input for reserving a slot.
type BookingInput struct {
	ItemID    int64  `json:"item_id" validate:"required,gt=0"`
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1"`
}

func (h *HTTPHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var input BookingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		metrics.BookingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		respondWithError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}

	booking, err := h.bookingService.BookSlot(r.Context(), input.ItemID, input.UserID, date, input.StartTime, input.EndTime, quantity)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
		respondServiceError(w, err, "Failed to create booking")
		return
	}

	metrics.BookingsTotal.WithLabelValues(metrics.OutcomeConfirmed).Inc()
	respondWithJSON(w, http.StatusCreated, booking)
}

// bookingOutcome maps a reservation error onto its metrics label.
func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, service.ErrSlotFull):
		return metrics.OutcomeSlotFull
	case errors.Is(err, store.ErrTxConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrItemNotBookable),
		errors.Is(err, service.ErrDayNotAvailable),
		errors.Is(err, service.ErrInvalidTimeSlot),
		errors.Is(err, store.ErrItemNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func (h *HTTPHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	qParams := r.URL.Query()

	params := store.ListBookingsParams{Limit: limit, Offset: offset}

	if idStr := qParams.Get("user_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid user_id format")
			return
		}
		params.UserID = &id
	}
	if idStr := qParams.Get("item_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid item_id format")
			return
		}
		params.ItemID = &id
	}
	if statusStr := qParams.Get("status"); statusStr != "" {
		status := domain.BookingStatus(statusStr)
		switch status {
		case domain.StatusPending, domain.StatusConfirmed, domain.StatusCancelled:
			params.Status = &status
		default:
			respondWithError(w, http.StatusBadRequest, "Invalid status value. Allowed: pending, confirmed, cancelled")
			return
		}
	}

	bookings, totalCount, err := h.bookingStore.ListBookings(r.Context(), params)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve bookings")
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Booking `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}{Data: bookings, Pagination: newPagination(page, limit, totalCount)})
}

func (h *HTTPHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, err := h.bookingStore.GetBookingByID(r.Context(), bookingID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve booking")
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}

// CancelInput identifies the caller of a cancel request.
type CancelInput struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *HTTPHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var input CancelInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	cancelled, err := h.bookingService.CancelBooking(r.Context(), bookingID, input.UserID)
	if err != nil {
		respondServiceError(w, err, "Failed to cancel booking")
		return
	}
	respondWithJSON(w, http.StatusOK, cancelled)
}
