package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

// Helper for setting up tests with a chi router and handler. Only the
// category store is wired; the remaining dependencies stay nil because
// category handlers never touch them.
func setupCategoryTestServer(t *testing.T, cs store.CategoryStorer) *httptest.Server {
	handler := NewHTTPHandler(cs, nil, nil, nil, nil, nil, nil)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return httptest.NewServer(router)
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

func TestHTTPHandler_CreateCategory_Success(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	now := time.Now().Truncate(time.Millisecond)
	inputPayload := CategoryInput{
		Name:          "New API Test Category",
		Description:   PtrTo("Description for API category"),
		TaxApplicable: PtrTo(true),
		TaxPercentage: PtrTo(10.0),
	}
	expectedCreatedCategory := &domain.Category{
		ID:          1,
		Name:        inputPayload.Name,
		Description: inputPayload.Description,
		Tax:         domain.ExplicitTax(true, 10),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mockCatStore.On("CreateCategory", mock.Anything, mock.MatchedBy(func(cat *domain.Category) bool {
		return cat.Name == inputPayload.Name && cat.Tax.Explicit && cat.Tax.Applicable && cat.Tax.Percentage == 10 && cat.IsActive
	})).Return(expectedCreatedCategory, nil).Once()

	reqBody, _ := json.Marshal(inputPayload)
	res, err := http.Post(server.URL+"/api/v1/categories", "application/json", bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)

	var responseCategory domain.Category
	err = json.NewDecoder(res.Body).Decode(&responseCategory)
	require.NoError(t, err)
	assert.Equal(t, expectedCreatedCategory.ID, responseCategory.ID)
	assert.Equal(t, expectedCreatedCategory.Name, responseCategory.Name)
	assert.True(t, responseCategory.Tax.Explicit)
	assert.Equal(t, 10.0, responseCategory.Tax.Percentage)

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_CreateCategory_OmittedTaxMeansInherit(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	mockCatStore.On("CreateCategory", mock.Anything, mock.MatchedBy(func(cat *domain.Category) bool {
		return !cat.Tax.Explicit
	})).Return(&domain.Category{ID: 2, Name: "Untagged", IsActive: true}, nil).Once()

	res, err := http.Post(server.URL+"/api/v1/categories", "application/json",
		bytes.NewBufferString(`{"name": "Untagged"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)

	// An unset override serializes as JSON null, not as {applicable: false}.
	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(res.Body).Decode(&raw))
	assert.Equal(t, "null", string(raw["tax"]))

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_CreateCategory_InvalidPayload_Validation(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	// Name is required, send empty name
	inputPayload := CategoryInput{Name: ""}
	reqBody, _ := json.Marshal(inputPayload)

	res, err := http.Post(server.URL+"/api/v1/categories", "application/json", bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	var errResp ErrorResponse
	err = json.NewDecoder(res.Body).Decode(&errResp)
	require.NoError(t, err)
	assert.Contains(t, errResp.Error, "Validation failed", "Error message should indicate validation failure")
}

func TestHTTPHandler_CreateCategory_StoreError_NameExists(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	inputPayload := CategoryInput{Name: "Existing Name", Description: PtrTo("Desc")}

	mockCatStore.On("CreateCategory", mock.Anything, mock.AnythingOfType("*domain.Category")).
		Return(nil, store.ErrCategoryNameExists).Once()

	reqBody, _ := json.Marshal(inputPayload)
	res, err := http.Post(server.URL+"/api/v1/categories", "application/json", bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusConflict, res.StatusCode)
	var errResp ErrorResponse
	err = json.NewDecoder(res.Body).Decode(&errResp)
	require.NoError(t, err)
	assert.Equal(t, store.ErrCategoryNameExists.Error(), errResp.Error)

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_ListCategories_Success(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	now := time.Now().Truncate(time.Millisecond)
	expectedCategories := []domain.Category{
		{ID: 1, Name: "Cat A", IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "Cat B", IsActive: true, CreatedAt: now, UpdatedAt: now},
	}
	expectedTotalCount := 2

	mockCatStore.On("ListCategories", mock.Anything, store.ListParams{Limit: 10, Offset: 0}).
		Return(expectedCategories, expectedTotalCount, nil).Once()

	res, err := http.Get(server.URL + "/api/v1/categories?page=1&limit=10")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var responsePayload struct {
		Data       []domain.Category `json:"data"`
		Pagination Pagination        `json:"pagination"`
	}
	err = json.NewDecoder(res.Body).Decode(&responsePayload)
	require.NoError(t, err)

	assert.Len(t, responsePayload.Data, 2)
	assert.Equal(t, "Cat A", responsePayload.Data[0].Name)
	assert.Equal(t, 1, responsePayload.Pagination.Page)
	assert.Equal(t, 10, responsePayload.Pagination.Limit)
	assert.Equal(t, expectedTotalCount, responsePayload.Pagination.TotalItems)
	assert.Equal(t, 1, responsePayload.Pagination.TotalPages) // (2 + 10 - 1) / 10 = 1

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_GetCategoryByID_Found(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	categoryID := int64(1)
	now := time.Now().Truncate(time.Millisecond)
	expectedCategory := &domain.Category{
		ID: categoryID, Name: "Fetched Category", Description: PtrTo("Details"), IsActive: true, CreatedAt: now, UpdatedAt: now,
	}

	mockCatStore.On("GetCategoryByID", mock.Anything, categoryID).Return(expectedCategory, nil).Once()

	res, err := http.Get(server.URL + fmt.Sprintf("/api/v1/categories/%d", categoryID))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	var responseCategory domain.Category
	err = json.NewDecoder(res.Body).Decode(&responseCategory)
	require.NoError(t, err)
	assert.Equal(t, expectedCategory.ID, responseCategory.ID)
	assert.Equal(t, expectedCategory.Name, responseCategory.Name)

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_GetCategoryByID_NotFound(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	categoryID := int64(99)
	mockCatStore.On("GetCategoryByID", mock.Anything, categoryID).Return(nil, store.ErrCategoryNotFound).Once()

	res, err := http.Get(server.URL + fmt.Sprintf("/api/v1/categories/%d", categoryID))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	var errResp ErrorResponse
	err = json.NewDecoder(res.Body).Decode(&errResp)
	require.NoError(t, err)
	assert.Equal(t, store.ErrCategoryNotFound.Error(), errResp.Error)

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_UpdateCategory_NotFound(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	categoryID := int64(99)
	updatePayload := CategoryInput{Name: "Non Existent Update"}

	mockCatStore.On("UpdateCategory", mock.Anything, mock.MatchedBy(func(cat *domain.Category) bool {
		return cat.ID == categoryID
	})).Return(nil, store.ErrCategoryNotFound).Once()

	reqBody, _ := json.Marshal(updatePayload)
	req, err := http.NewRequest(http.MethodPut, server.URL+fmt.Sprintf("/api/v1/categories/%d", categoryID), bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	var errResp ErrorResponse
	err = json.NewDecoder(res.Body).Decode(&errResp)
	require.NoError(t, err)
	assert.Equal(t, store.ErrCategoryNotFound.Error(), errResp.Error)

	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_DeleteCategory_Success(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	categoryID := int64(1)

	mockCatStore.On("DeleteCategory", mock.Anything, categoryID).Return(nil).Once()

	req, err := http.NewRequest(http.MethodDelete, server.URL+fmt.Sprintf("/api/v1/categories/%d", categoryID), nil)
	require.NoError(t, err)

	client := &http.Client{}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	mockCatStore.AssertExpectations(t)
}

func TestHTTPHandler_DeleteCategory_NotFound(t *testing.T) {
	mockCatStore := new(MockCategoryStorer)
	server := setupCategoryTestServer(t, mockCatStore)
	defer server.Close()

	categoryID := int64(99)
	mockCatStore.On("DeleteCategory", mock.Anything, categoryID).Return(store.ErrCategoryNotFound).Once()

	req, err := http.NewRequest(http.MethodDelete, server.URL+fmt.Sprintf("/api/v1/categories/%d", categoryID), nil)
	require.NoError(t, err)

	client := &http.Client{}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	var errResp ErrorResponse
	err = json.NewDecoder(res.Body).Decode(&errResp)
	require.NoError(t, err)
	assert.Equal(t, store.ErrCategoryNotFound.Error(), errResp.Error)

	mockCatStore.AssertExpectations(t)
}
