package service

import (
	"context"
	"sync"
	"time"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"

	"github.com/stretchr/testify/mock"
)

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

// MockCategoryStorer is a mock implementation of store.CategoryStorer
type MockCategoryStorer struct {
	mock.Mock
}

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) ListCategories(ctx context.Context, params store.ListParams) ([]domain.Category, int, error) {
	args := m.Called(ctx, params)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Int(1), args.Error(2)
}

func (m *MockCategoryStorer) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) DeleteCategory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSubcategoryStorer is a mock implementation of store.SubcategoryStorer
type MockSubcategoryStorer struct {
	mock.Mock
}

func (m *MockSubcategoryStorer) CreateSubcategory(ctx context.Context, subcategory *domain.Subcategory) (*domain.Subcategory, error) {
	args := m.Called(ctx, subcategory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subcategory), args.Error(1)
}

func (m *MockSubcategoryStorer) GetSubcategoryByID(ctx context.Context, id int64) (*domain.Subcategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subcategory), args.Error(1)
}

func (m *MockSubcategoryStorer) ListSubcategories(ctx context.Context, categoryID *int64, params store.ListParams) ([]domain.Subcategory, int, error) {
	args := m.Called(ctx, categoryID, params)
	var subcategories []domain.Subcategory
	if arg0 := args.Get(0); arg0 != nil {
		subcategories = arg0.([]domain.Subcategory)
	}
	return subcategories, args.Int(1), args.Error(2)
}

func (m *MockSubcategoryStorer) UpdateSubcategory(ctx context.Context, subcategory *domain.Subcategory) (*domain.Subcategory, error) {
	args := m.Called(ctx, subcategory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subcategory), args.Error(1)
}

func (m *MockSubcategoryStorer) DeleteSubcategory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAddonStorer is a mock implementation of store.AddonStorer
type MockAddonStorer struct {
	mock.Mock
}

func (m *MockAddonStorer) CreateAddon(ctx context.Context, addon *domain.Addon) (*domain.Addon, error) {
	args := m.Called(ctx, addon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Addon), args.Error(1)
}

func (m *MockAddonStorer) GetAddonByID(ctx context.Context, id int64) (*domain.Addon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Addon), args.Error(1)
}

func (m *MockAddonStorer) ListAddonsByItem(ctx context.Context, itemID int64) ([]domain.Addon, error) {
	args := m.Called(ctx, itemID)
	var addons []domain.Addon
	if arg0 := args.Get(0); arg0 != nil {
		addons = arg0.([]domain.Addon)
	}
	return addons, args.Error(1)
}

func (m *MockAddonStorer) UpdateAddon(ctx context.Context, addon *domain.Addon) (*domain.Addon, error) {
	args := m.Called(ctx, addon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Addon), args.Error(1)
}

func (m *MockAddonStorer) DeleteAddon(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAddonStorer) FindActiveAddonsByIDs(ctx context.Context, ids []int64) ([]domain.Addon, error) {
	args := m.Called(ctx, ids)
	var addons []domain.Addon
	if arg0 := args.Get(0); arg0 != nil {
		addons = arg0.([]domain.Addon)
	}
	return addons, args.Error(1)
}

// fakeItemStore is a minimal read-only ItemStorer backed by a map. Safe for
// concurrent reads, which is all the booking tests need.
type fakeItemStore struct {
	items map[int64]*domain.Item
}

func (f *fakeItemStore) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	found := *item
	return &found, nil
}

func (f *fakeItemStore) CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	return nil, nil
}

func (f *fakeItemStore) ListItems(ctx context.Context, params store.ListItemsParams) ([]domain.Item, int, error) {
	return nil, 0, nil
}

func (f *fakeItemStore) UpdateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	return nil, nil
}

func (f *fakeItemStore) DeleteItem(ctx context.Context, id int64) error {
	return nil
}

// memBookingStore is an in-memory BookingStorer. InTx holds a mutex for the
// whole callback, which models serializable isolation closely enough for the
// concurrent reservation tests: transactions never interleave.
type memBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings []domain.Booking
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{nextID: 1}
}

func (m *memBookingStore) InTx(ctx context.Context, fn func(store.BookingStorer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn((*lockedBookingStore)(m))
}

func (m *memBookingStore) FindOverlapping(ctx context.Context, itemID int64, date time.Time, startTime, endTime string, excludeCancelled bool) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*lockedBookingStore)(m).FindOverlapping(ctx, itemID, date, startTime, endTime, excludeCancelled)
}

func (m *memBookingStore) InsertBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*lockedBookingStore)(m).InsertBooking(ctx, booking)
}

func (m *memBookingStore) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*lockedBookingStore)(m).GetBookingByID(ctx, id)
}

func (m *memBookingStore) UpdateBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*lockedBookingStore)(m).UpdateBookingStatus(ctx, id, from, to)
}

func (m *memBookingStore) ListBookings(ctx context.Context, params store.ListBookingsParams) ([]domain.Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*lockedBookingStore)(m).ListBookings(ctx, params)
}

// lockedBookingStore is memBookingStore with the mutex already held.
type lockedBookingStore memBookingStore

func (l *lockedBookingStore) InTx(ctx context.Context, fn func(store.BookingStorer) error) error {
	return fn(l)
}

func (l *lockedBookingStore) FindOverlapping(ctx context.Context, itemID int64, date time.Time, startTime, endTime string, excludeCancelled bool) ([]domain.Booking, error) {
	day := date.Format("2006-01-02")
	matches := []domain.Booking{}
	for _, b := range l.bookings {
		if b.ItemID != itemID || b.BookingDate.Format("2006-01-02") != day {
			continue
		}
		if excludeCancelled && b.Status == domain.StatusCancelled {
			continue
		}
		if b.Overlaps(startTime, endTime) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}

func (l *lockedBookingStore) InsertBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	b := *booking
	b.ID = l.nextID
	l.nextID++
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	l.bookings = append(l.bookings, b)
	created := b
	return &created, nil
}

func (l *lockedBookingStore) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	for _, b := range l.bookings {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, store.ErrBookingNotFound
}

func (l *lockedBookingStore) UpdateBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	for i := range l.bookings {
		if l.bookings[i].ID == id && l.bookings[i].Status == from {
			l.bookings[i].Status = to
			l.bookings[i].UpdatedAt = time.Now()
			updated := l.bookings[i]
			return &updated, nil
		}
	}
	return nil, store.ErrBookingNotFound
}

func (l *lockedBookingStore) ListBookings(ctx context.Context, params store.ListBookingsParams) ([]domain.Booking, int, error) {
	return append([]domain.Booking{}, l.bookings...), len(l.bookings), nil
}
