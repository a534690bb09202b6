package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"
)

// --- Item Handlers ---

// ItemInput defines the expected input for creating/updating an item.
type ItemInput struct {
	Name          string               `json:"name" validate:"required,max=255"`
	Description   *string              `json:"description" validate:"omitempty"`
	Image         *string              `json:"image" validate:"omitempty,url,max=2048"`
	CategoryID    *int64               `json:"category_id" validate:"omitempty,gt=0"`
	SubcategoryID *int64               `json:"subcategory_id" validate:"omitempty,gt=0"`
	TaxApplicable *bool                `json:"tax_applicable"` // nil means inherit
	TaxPercentage *float64             `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	Pricing       domain.Pricing       `json:"pricing" validate:"required"`
	IsBookable    bool                 `json:"is_bookable"`
	Availability  *domain.Availability `json:"availability"`
	IsActive      *bool                `json:"is_active"`
}

func (in ItemInput) validateCatalogLink() error {
	// Exactly one of category/subcategory, never both, never neither.
	if (in.CategoryID == nil) == (in.SubcategoryID == nil) {
		return errors.New("item must belong to either a category or a subcategory, but not both")
	}
	return nil
}

func (in ItemInput) toDomain() *domain.Item {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	item := &domain.Item{
		Name:          in.Name,
		Description:   in.Description,
		Image:         in.Image,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		Tax:           taxFromInput(in.TaxApplicable, in.TaxPercentage),
		Pricing:       in.Pricing,
		IsBookable:    in.IsBookable,
		IsActive:      isActive,
	}
	if in.Availability != nil {
		item.Availability = *in.Availability
	}
	return item
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if err := input.validateCatalogLink(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.itemStore.CreateItem(r.Context(), input.toDomain())
	if err != nil {
		if errors.Is(err, store.ErrItemNameExists) {
			respondWithError(w, http.StatusConflict, store.ErrItemNameExists.Error())
			return
		}
		respondServiceError(w, err, "Failed to create item")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	qParams := r.URL.Query()

	params := store.ListItemsParams{Limit: limit, Offset: offset}

	if q := qParams.Get("q"); q != "" {
		params.SearchQuery = &q
	}
	if idStr := qParams.Get("category_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		params.CategoryID = &id
	}
	if idStr := qParams.Get("subcategory_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid subcategory_id format")
			return
		}
		params.SubcategoryID = &id
	}
	if priceStr := qParams.Get("min_price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid min_price format")
			return
		}
		params.MinPrice = &price
	}
	if priceStr := qParams.Get("max_price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid max_price format")
			return
		}
		params.MaxPrice = &price
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		respondWithError(w, http.StatusBadRequest, "min_price cannot exceed max_price")
		return
	}
	if activeStr := qParams.Get("is_active"); activeStr != "" {
		b, err := strconv.ParseBool(activeStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid is_active value: must be true or false")
			return
		}
		params.IsActive = &b
	}
	if bookableStr := qParams.Get("is_bookable"); bookableStr != "" {
		b, err := strconv.ParseBool(bookableStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid is_bookable value: must be true or false")
			return
		}
		params.IsBookable = &b
	}

	params.SortBy = qParams.Get("sort_by")
	allowedSortFields := map[string]bool{"name": true, "created_at": true, "updated_at": true, "": true}
	if !allowedSortFields[params.SortBy] {
		respondWithError(w, http.StatusBadRequest, "Invalid sort_by field. Allowed: name, created_at, updated_at")
		return
	}
	params.SortOrder = qParams.Get("sort_order")
	if params.SortOrder != "" && strings.ToLower(params.SortOrder) != "asc" && strings.ToLower(params.SortOrder) != "desc" {
		respondWithError(w, http.StatusBadRequest, "Invalid sort_order value. Allowed: asc, desc")
		return
	}

	items, totalCount, err := h.itemStore.ListItems(r.Context(), params)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve items")
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Item `json:"data"`
		Pagination Pagination    `json:"pagination"`
	}{Data: items, Pagination: newPagination(page, limit, totalCount)})
}

func (h *HTTPHandler) GetItemByID(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	item, err := h.itemStore.GetItemByID(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve item")
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	var input ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if err := input.validateCatalogLink(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := input.toDomain()
	item.ID = itemID

	updated, err := h.itemStore.UpdateItem(r.Context(), item)
	if err != nil {
		if errors.Is(err, store.ErrItemNameExists) {
			respondWithError(w, http.StatusConflict, store.ErrItemNameExists.Error())
			return
		}
		respondServiceError(w, err, "Failed to update item")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	if err := h.itemStore.DeleteItem(r.Context(), itemID); err != nil {
		respondServiceError(w, err, "Failed to delete item")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Addon Handlers ---

// AddonInput defines the expected input for creating/updating an add-on.
type AddonInput struct {
	ItemID             int64                     `json:"item_id" validate:"required,gt=0"`
	Name               string                    `json:"name" validate:"required,max=255"`
	Price              float64                   `json:"price" validate:"gte=0"`
	IsMandatory        bool                      `json:"is_mandatory"`
	GroupName          *string                   `json:"group_name" validate:"omitempty,max=255"`
	GroupSelectionType domain.AddonSelectionType `json:"group_selection_type" validate:"omitempty,oneof=single multiple"`
	MaxSelections      *int                      `json:"max_selections" validate:"omitempty,gte=1"`
	IsActive           *bool                     `json:"is_active"`
}

func (in AddonInput) toDomain() *domain.Addon {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	selectionType := in.GroupSelectionType
	if selectionType == "" {
		selectionType = domain.AddonSelectionMultiple
	}
	return &domain.Addon{
		ItemID:             in.ItemID,
		Name:               in.Name,
		Price:              in.Price,
		IsMandatory:        in.IsMandatory,
		GroupName:          in.GroupName,
		GroupSelectionType: selectionType,
		MaxSelections:      in.MaxSelections,
		IsActive:           isActive,
	}
}

func (h *HTTPHandler) CreateAddon(w http.ResponseWriter, r *http.Request) {
	var input AddonInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.addonStore.CreateAddon(r.Context(), input.toDomain())
	if err != nil {
		respondServiceError(w, err, "Failed to create addon")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetAddonByID(w http.ResponseWriter, r *http.Request) {
	addonID, ok := pathID(r, "addonId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid addon ID format")
		return
	}

	addon, err := h.addonStore.GetAddonByID(r.Context(), addonID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve addon")
		return
	}
	respondWithJSON(w, http.StatusOK, addon)
}

func (h *HTTPHandler) ListItemAddons(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	addons, err := h.addonStore.ListAddonsByItem(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve addons")
		return
	}
	respondWithJSON(w, http.StatusOK, addons)
}

func (h *HTTPHandler) UpdateAddon(w http.ResponseWriter, r *http.Request) {
	addonID, ok := pathID(r, "addonId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid addon ID format")
		return
	}

	var input AddonInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	addon := input.toDomain()
	addon.ID = addonID

	updated, err := h.addonStore.UpdateAddon(r.Context(), addon)
	if err != nil {
		respondServiceError(w, err, "Failed to update addon")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteAddon(w http.ResponseWriter, r *http.Request) {
	addonID, ok := pathID(r, "addonId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid addon ID format")
		return
	}

	if err := h.addonStore.DeleteAddon(r.Context(), addonID); err != nil {
		respondServiceError(w, err, "Failed to delete addon")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
