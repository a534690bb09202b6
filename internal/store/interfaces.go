package store

import (
	"context"
	"time"

	"menu-catalog-service/internal/domain"
)

// ListParams holds pagination parameters shared by the simple list endpoints.
type ListParams struct {
	Limit  int
	Offset int
}

// ListItemsParams holds parameters for listing items (pagination, filtering,
// sorting, text search).
type ListItemsParams struct {
	Limit         int
	Offset        int
	SearchQuery   *string // Matches against name/description
	CategoryID    *int64
	SubcategoryID *int64
	MinPrice      *float64 // Against pricing base_price
	MaxPrice      *float64
	IsActive      *bool
	IsBookable    *bool
	SortBy        string // "name", "created_at", "updated_at"
	SortOrder     string // "asc" or "desc"
}

// ListBookingsParams holds parameters for listing bookings.
type ListBookingsParams struct {
	Limit  int
	Offset int
	UserID *int64
	ItemID *int64
	Status *domain.BookingStatus
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, params ListParams) ([]domain.Category, int, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// SubcategoryStorer defines the database operations for subcategories.
type SubcategoryStorer interface {
	CreateSubcategory(ctx context.Context, subcategory *domain.Subcategory) (*domain.Subcategory, error)
	GetSubcategoryByID(ctx context.Context, id int64) (*domain.Subcategory, error)
	ListSubcategories(ctx context.Context, categoryID *int64, params ListParams) ([]domain.Subcategory, int, error)
	UpdateSubcategory(ctx context.Context, subcategory *domain.Subcategory) (*domain.Subcategory, error)
	DeleteSubcategory(ctx context.Context, id int64) error
}

// ItemStorer defines the database operations for items.
type ItemStorer interface {
	CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error)
	GetItemByID(ctx context.Context, id int64) (*domain.Item, error)
	ListItems(ctx context.Context, params ListItemsParams) ([]domain.Item, int, error)
	UpdateItem(ctx context.Context, item *domain.Item) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// AddonStorer defines the database operations for item add-ons.
type AddonStorer interface {
	CreateAddon(ctx context.Context, addon *domain.Addon) (*domain.Addon, error)
	GetAddonByID(ctx context.Context, id int64) (*domain.Addon, error)
	ListAddonsByItem(ctx context.Context, itemID int64) ([]domain.Addon, error)
	UpdateAddon(ctx context.Context, addon *domain.Addon) (*domain.Addon, error)
	DeleteAddon(ctx context.Context, id int64) error
	// FindActiveAddonsByIDs returns the active add-ons among ids. Inactive
	// or unknown ids are silently omitted from the result.
	FindActiveAddonsByIDs(ctx context.Context, ids []int64) ([]domain.Addon, error)
}

// BookingStorer defines the database operations for bookings.
//
// InTx runs fn against a BookingStorer bound to a single serializable
// transaction; the reserve flow uses it to make its conflict-count read and
// booking insert one indivisible unit. A serialization abort surfaces as
// ErrTxConflict so callers can retry or report a transient conflict.
type BookingStorer interface {
	// FindOverlapping returns the bookings for itemID on date whose
	// [start, end) interval overlaps [startTime, endTime) under the
	// half-open rule, optionally excluding cancelled bookings.
	FindOverlapping(ctx context.Context, itemID int64, date time.Time, startTime, endTime string, excludeCancelled bool) ([]domain.Booking, error)
	InsertBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error)
	// UpdateBookingStatus transitions a booking from one status to another
	// as a compare-and-set; it fails with ErrBookingNotFound when no row
	// matched (missing booking or status already changed).
	UpdateBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error)
	ListBookings(ctx context.Context, params ListBookingsParams) ([]domain.Booking, int, error)
	InTx(ctx context.Context, fn func(BookingStorer) error) error
}
