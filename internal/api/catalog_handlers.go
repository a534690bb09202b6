package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"
)

// --- Category Handlers ---

// CategoryInput defines the expected input for creating/updating a category.
type CategoryInput struct {
	Name          string   `json:"name" validate:"required,max=255"`
	Description   *string  `json:"description" validate:"omitempty"`
	Image         *string  `json:"image" validate:"omitempty,url,max=2048"`
	TaxApplicable *bool    `json:"tax_applicable"` // nil means inherit
	TaxPercentage *float64 `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	IsActive      *bool    `json:"is_active"`
}

func (in CategoryInput) toDomain() *domain.Category {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return &domain.Category{
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Tax:         taxFromInput(in.TaxApplicable, in.TaxPercentage),
		IsActive:    isActive,
	}
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), input.toDomain())
	if err != nil {
		if errors.Is(err, store.ErrCategoryNameExists) {
			respondWithError(w, http.StatusConflict, store.ErrCategoryNameExists.Error())
			return
		}
		respondServiceError(w, err, "Failed to create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)

	categories, totalCount, err := h.categoryStore.ListCategories(r.Context(), store.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve categories")
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Category `json:"data"`
		Pagination Pagination        `json:"pagination"`
	}{Data: categories, Pagination: newPagination(page, limit, totalCount)})
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	category, err := h.categoryStore.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	category := input.toDomain()
	category.ID = categoryID

	updated, err := h.categoryStore.UpdateCategory(r.Context(), category)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNameExists) {
			respondWithError(w, http.StatusConflict, store.ErrCategoryNameExists.Error())
			return
		}
		respondServiceError(w, err, "Failed to update category")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	if err := h.categoryStore.DeleteCategory(r.Context(), categoryID); err != nil {
		respondServiceError(w, err, "Failed to delete category")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Subcategory Handlers ---

// SubcategoryInput defines the expected input for creating/updating a subcategory.
type SubcategoryInput struct {
	CategoryID    int64    `json:"category_id" validate:"required,gt=0"`
	Name          string   `json:"name" validate:"required,max=255"`
	Description   *string  `json:"description" validate:"omitempty"`
	Image         *string  `json:"image" validate:"omitempty,url,max=2048"`
	TaxApplicable *bool    `json:"tax_applicable"` // nil means inherit from category
	TaxPercentage *float64 `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	IsActive      *bool    `json:"is_active"`
}

func (in SubcategoryInput) toDomain() *domain.Subcategory {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return &domain.Subcategory{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Tax:         taxFromInput(in.TaxApplicable, in.TaxPercentage),
		IsActive:    isActive,
	}
}

func (h *HTTPHandler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var input SubcategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.subcategoryStore.CreateSubcategory(r.Context(), input.toDomain())
	if err != nil {
		if errors.Is(err, store.ErrSubcategoryNameExists) {
			respondWithError(w, http.StatusConflict, store.ErrSubcategoryNameExists.Error())
			return
		}
		respondServiceError(w, err, "Failed to create subcategory")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)

	// Either nested under /categories/{categoryId}/subcategories or
	// filtered via ?category_id= on the flat collection.
	var categoryID *int64
	if id, ok := pathID(r, "categoryId"); ok {
		categoryID = &id
	} else if idStr := r.URL.Query().Get("category_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		categoryID = &id
	}

	subcategories, totalCount, err := h.subcategoryStore.ListSubcategories(r.Context(), categoryID, store.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve subcategories")
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Subcategory `json:"data"`
		Pagination Pagination           `json:"pagination"`
	}{Data: subcategories, Pagination: newPagination(page, limit, totalCount)})
}

func (h *HTTPHandler) GetSubcategoryByID(w http.ResponseWriter, r *http.Request) {
	subcategoryID, ok := pathID(r, "subcategoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid subcategory ID format")
		return
	}

	subcategory, err := h.subcategoryStore.GetSubcategoryByID(r.Context(), subcategoryID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve subcategory")
		return
	}
	respondWithJSON(w, http.StatusOK, subcategory)
}

func (h *HTTPHandler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	subcategoryID, ok := pathID(r, "subcategoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid subcategory ID format")
		return
	}

	var input SubcategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	subcategory := input.toDomain()
	subcategory.ID = subcategoryID

	updated, err := h.subcategoryStore.UpdateSubcategory(r.Context(), subcategory)
	if err != nil {
		if errors.Is(err, store.ErrSubcategoryNameExists) {
			respondWithError(w, http.StatusConflict, store.ErrSubcategoryNameExists.Error())
			return
		}
		respondServiceError(w, err, "Failed to update subcategory")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	subcategoryID, ok := pathID(r, "subcategoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid subcategory ID format")
		return
	}

	if err := h.subcategoryStore.DeleteSubcategory(r.Context(), subcategoryID); err != nil {
		respondServiceError(w, err, "Failed to delete subcategory")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
