package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/service"
	"menu-catalog-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	categoryStore    store.CategoryStorer
	subcategoryStore store.SubcategoryStorer
	itemStore        store.ItemStorer
	addonStore       store.AddonStorer
	bookingStore     store.BookingStorer
	bookingService   *service.BookingService
	pricingService   *service.PricingService
	validate         *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(
	cs store.CategoryStorer,
	ss store.SubcategoryStorer,
	is store.ItemStorer,
	as store.AddonStorer,
	bs store.BookingStorer,
	bookingService *service.BookingService,
	pricingService *service.PricingService,
) *HTTPHandler {
	return &HTTPHandler{
		categoryStore:    cs,
		subcategoryStore: ss,
		itemStore:        is,
		addonStore:       as,
		bookingStore:     bs,
		bookingService:   bookingService,
		pricingService:   pricingService,
		validate:         validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Pagination matches the pagination block of list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, limit, totalCount int) Pagination {
	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, TotalItems: totalCount, TotalPages: totalPages}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
			http.Error(w, `{"error": "Internal server error during JSON encoding"}`, http.StatusInternalServerError)
		}
	}
}

// pageParams parses page/limit query parameters with the usual defaults.
func pageParams(r *http.Request) (page, limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// taxFromInput converts the nullable input pair into the tagged override.
// Absent applicability means "inherit from parent".
func taxFromInput(applicable *bool, percentage *float64) domain.TaxConfig {
	if applicable == nil {
		return domain.TaxConfig{}
	}
	pct := 0.0
	if percentage != nil {
		pct = *percentage
	}
	return domain.ExplicitTax(*applicable, pct)
}

// respondServiceError maps store and service sentinel errors onto HTTP
// statuses: missing records 404, bad input 400, business-rule violations
// 422, capacity/ownership conflicts 409/403, everything else 500.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrSubcategoryNotFound),
		errors.Is(err, store.ErrAddonNotFound),
		errors.Is(err, store.ErrBookingNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrInvalidQuantity):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrItemNotBookable),
		errors.Is(err, service.ErrDayNotAvailable),
		errors.Is(err, service.ErrInvalidTimeSlot),
		errors.Is(err, service.ErrOverlappingTiers),
		errors.Is(err, service.ErrNoMatchingTier),
		errors.Is(err, service.ErrNotAvailableNow),
		errors.Is(err, service.ErrInvalidPricingType):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrSlotFull),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, store.ErrTxConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("ERROR: %s: %v", fallback, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Route("/{categoryId}", func(r chi.Router) {
			r.Get("/", h.GetCategoryByID)
			r.Put("/", h.UpdateCategory)
			r.Delete("/", h.DeleteCategory)
			r.Get("/subcategories", h.ListSubcategories)
		})
	})

	r.Route("/api/v1/subcategories", func(r chi.Router) {
		r.Post("/", h.CreateSubcategory)
		r.Get("/", h.ListSubcategories)
		r.Route("/{subcategoryId}", func(r chi.Router) {
			r.Get("/", h.GetSubcategoryByID)
			r.Put("/", h.UpdateSubcategory)
			r.Delete("/", h.DeleteSubcategory)
		})
	})

	r.Route("/api/v1/items", func(r chi.Router) {
		r.Post("/", h.CreateItem)
		r.Get("/", h.ListItems)
		r.Route("/{itemId}", func(r chi.Router) {
			r.Get("/", h.GetItemByID)
			r.Put("/", h.UpdateItem)
			r.Delete("/", h.DeleteItem)
			r.Get("/availability", h.GetItemAvailability)
			r.Post("/price", h.CalculateItemPrice)
			r.Get("/addons", h.ListItemAddons)
		})
	})

	r.Route("/api/v1/addons", func(r chi.Router) {
		r.Post("/", h.CreateAddon)
		r.Route("/{addonId}", func(r chi.Router) {
			r.Get("/", h.GetAddonByID)
			r.Put("/", h.UpdateAddon)
			r.Delete("/", h.DeleteAddon)
		})
	})

	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/", h.ListBookings)
		r.Route("/{bookingId}", func(r chi.Router) {
			r.Get("/", h.GetBookingByID)
			r.Post("/cancel", h.CancelBooking)
		})
	})
}
