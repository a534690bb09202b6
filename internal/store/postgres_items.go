package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"menu-catalog-service/internal/domain"
)

const itemColumns = `id, name, description, image, category_id, subcategory_id,
		tax_applicable, tax_percentage, pricing, is_bookable, availability, is_active, created_at, updated_at`

// --- ItemStorer Implementation ---

func (s *PostgresStore) CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	query := `
		INSERT INTO menu.items
			(name, description, image, category_id, subcategory_id, tax_applicable, tax_percentage, pricing, is_bookable, availability, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + itemColumns + `;
	`
	pricingJSON, availabilityJSON, err := itemConfigJSON(item)
	if err != nil {
		return nil, err
	}
	taxApplicable, taxPercentage := taxArgs(item.Tax)

	row := s.db.QueryRowContext(ctx, query,
		item.Name, item.Description, item.Image, item.CategoryID, item.SubcategoryID,
		taxApplicable, taxPercentage, pricingJSON, item.IsBookable, availabilityJSON, item.IsActive,
	)

	created, err := scanItem(row)
	if err != nil {
		if isUniqueViolation(err, "items_category_id_name_key") || isUniqueViolation(err, "items_subcategory_id_name_key") {
			return nil, ErrItemNameExists
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			if strings.Contains(pqErr.Constraint, "subcategory") {
				return nil, ErrSubcategoryNotFound
			}
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateItem failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM menu.items
		WHERE id = $1;
	`
	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("store: GetItemByID failed to scan row: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, params ListItemsParams) ([]domain.Item, int, error) {
	var queryArgs []interface{}
	var whereClauses []string
	argID := 1

	if params.SearchQuery != nil && *params.SearchQuery != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argID, argID+1))
		searchTerm := "%" + *params.SearchQuery + "%"
		queryArgs = append(queryArgs, searchTerm, searchTerm)
		argID += 2
	}
	if params.CategoryID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("category_id = $%d", argID))
		queryArgs = append(queryArgs, *params.CategoryID)
		argID++
	}
	if params.SubcategoryID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("subcategory_id = $%d", argID))
		queryArgs = append(queryArgs, *params.SubcategoryID)
		argID++
	}
	if params.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(pricing->>'base_price')::numeric >= $%d", argID))
		queryArgs = append(queryArgs, *params.MinPrice)
		argID++
	}
	if params.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(pricing->>'base_price')::numeric <= $%d", argID))
		queryArgs = append(queryArgs, *params.MaxPrice)
		argID++
	}
	if params.IsActive != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("is_active = $%d", argID))
		queryArgs = append(queryArgs, *params.IsActive)
		argID++
	}
	if params.IsBookable != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("is_bookable = $%d", argID))
		queryArgs = append(queryArgs, *params.IsBookable)
		argID++
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM menu.items" + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListItems failed to count items: %w", err)
	}
	if totalCount == 0 {
		return []domain.Item{}, 0, nil
	}

	sortColumn := "created_at"
	allowedSortColumns := map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	if col, ok := allowedSortColumns[strings.ToLower(params.SortBy)]; ok {
		sortColumn = col
	}
	sortOrder := "ASC"
	if strings.ToUpper(params.SortOrder) == "DESC" {
		sortOrder = "DESC"
	}

	dataQuery := fmt.Sprintf(`
		SELECT `+itemColumns+`
		FROM menu.items%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		whereCondition, sortColumn, sortOrder, argID, argID+1)
	finalQueryArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, dataQuery, finalQueryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListItems failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, params.Limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListItems failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListItems iteration error: %w", err)
	}
	return items, totalCount, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	query := `
		UPDATE menu.items
		SET name = $1, description = $2, image = $3, category_id = $4, subcategory_id = $5,
			tax_applicable = $6, tax_percentage = $7, pricing = $8, is_bookable = $9, availability = $10,
			is_active = $11, updated_at = CURRENT_TIMESTAMP
		WHERE id = $12
		RETURNING ` + itemColumns + `;
	`
	pricingJSON, availabilityJSON, err := itemConfigJSON(item)
	if err != nil {
		return nil, err
	}
	taxApplicable, taxPercentage := taxArgs(item.Tax)

	row := s.db.QueryRowContext(ctx, query,
		item.Name, item.Description, item.Image, item.CategoryID, item.SubcategoryID,
		taxApplicable, taxPercentage, pricingJSON, item.IsBookable, availabilityJSON,
		item.IsActive, item.ID,
	)

	updated, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		if isUniqueViolation(err, "items_category_id_name_key") || isUniqueViolation(err, "items_subcategory_id_name_key") {
			return nil, ErrItemNameExists
		}
		return nil, fmt.Errorf("store: UpdateItem failed to scan row: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, id int64) error {
	query := `DELETE FROM menu.items WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteItem failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteItem failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func itemConfigJSON(item *domain.Item) ([]byte, []byte, error) {
	pricingJSON, err := json.Marshal(item.Pricing)
	if err != nil {
		return nil, nil, fmt.Errorf("store: failed to marshal item pricing: %w", err)
	}
	availabilityJSON, err := json.Marshal(item.Availability)
	if err != nil {
		return nil, nil, fmt.Errorf("store: failed to marshal item availability: %w", err)
	}
	return pricingJSON, availabilityJSON, nil
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var taxApplicable sql.NullBool
	var taxPercentage sql.NullFloat64
	var pricingJSON, availabilityJSON []byte

	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Image,
		&item.CategoryID, &item.SubcategoryID,
		&taxApplicable, &taxPercentage,
		&pricingJSON, &item.IsBookable, &availabilityJSON,
		&item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Tax = scanTax(taxApplicable, taxPercentage)
	if len(pricingJSON) > 0 {
		if err := json.Unmarshal(pricingJSON, &item.Pricing); err != nil {
			return nil, fmt.Errorf("store: failed to unmarshal item pricing: %w", err)
		}
	}
	if len(availabilityJSON) > 0 {
		if err := json.Unmarshal(availabilityJSON, &item.Availability); err != nil {
			return nil, fmt.Errorf("store: failed to unmarshal item availability: %w", err)
		}
	}
	return &item, nil
}

// --- AddonStorer Implementation ---

const addonColumns = `id, item_id, name, price, is_mandatory, group_name, group_selection_type, max_selections, is_active, created_at, updated_at`

func (s *PostgresStore) CreateAddon(ctx context.Context, addon *domain.Addon) (*domain.Addon, error) {
	query := `
		INSERT INTO menu.addons (item_id, name, price, is_mandatory, group_name, group_selection_type, max_selections, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + addonColumns + `;
	`
	row := s.db.QueryRowContext(ctx, query,
		addon.ItemID, addon.Name, addon.Price, addon.IsMandatory,
		addon.GroupName, addon.GroupSelectionType, addon.MaxSelections, addon.IsActive,
	)

	created, err := scanAddon(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // FK violation on item_id
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("store: CreateAddon failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetAddonByID(ctx context.Context, id int64) (*domain.Addon, error) {
	query := `
		SELECT ` + addonColumns + `
		FROM menu.addons
		WHERE id = $1;
	`
	addon, err := scanAddon(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddonNotFound
		}
		return nil, fmt.Errorf("store: GetAddonByID failed to scan row: %w", err)
	}
	return addon, nil
}

func (s *PostgresStore) ListAddonsByItem(ctx context.Context, itemID int64) ([]domain.Addon, error) {
	query := `
		SELECT ` + addonColumns + `
		FROM menu.addons
		WHERE item_id = $1
		ORDER BY group_name NULLS FIRST, name ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("store: ListAddonsByItem failed to query addons: %w", err)
	}
	defer rows.Close()

	addons := []domain.Addon{}
	for rows.Next() {
		addon, err := scanAddon(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListAddonsByItem failed to scan addon row: %w", err)
		}
		addons = append(addons, *addon)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListAddonsByItem iteration error: %w", err)
	}
	return addons, nil
}

func (s *PostgresStore) UpdateAddon(ctx context.Context, addon *domain.Addon) (*domain.Addon, error) {
	query := `
		UPDATE menu.addons
		SET name = $1, price = $2, is_mandatory = $3, group_name = $4, group_selection_type = $5, max_selections = $6, is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING ` + addonColumns + `;
	`
	row := s.db.QueryRowContext(ctx, query,
		addon.Name, addon.Price, addon.IsMandatory, addon.GroupName,
		addon.GroupSelectionType, addon.MaxSelections, addon.IsActive, addon.ID,
	)

	updated, err := scanAddon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddonNotFound
		}
		return nil, fmt.Errorf("store: UpdateAddon failed to scan row: %w", err)
	}
	return updated, nil
}

// DeleteAddon soft-deletes: add-ons referenced by past orders must stay
// resolvable, so the row is only flagged inactive.
func (s *PostgresStore) DeleteAddon(ctx context.Context, id int64) error {
	query := `UPDATE menu.addons SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteAddon failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteAddon failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAddonNotFound
	}
	return nil
}

func (s *PostgresStore) FindActiveAddonsByIDs(ctx context.Context, ids []int64) ([]domain.Addon, error) {
	if len(ids) == 0 {
		return []domain.Addon{}, nil
	}
	query := `
		SELECT ` + addonColumns + `
		FROM menu.addons
		WHERE id = ANY($1) AND is_active = TRUE;
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("store: FindActiveAddonsByIDs failed to query addons: %w", err)
	}
	defer rows.Close()

	addons := []domain.Addon{}
	for rows.Next() {
		addon, err := scanAddon(rows)
		if err != nil {
			return nil, fmt.Errorf("store: FindActiveAddonsByIDs failed to scan addon row: %w", err)
		}
		addons = append(addons, *addon)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: FindActiveAddonsByIDs iteration error: %w", err)
	}
	return addons, nil
}

func scanAddon(row rowScanner) (*domain.Addon, error) {
	var a domain.Addon
	err := row.Scan(
		&a.ID, &a.ItemID, &a.Name, &a.Price, &a.IsMandatory,
		&a.GroupName, &a.GroupSelectionType, &a.MaxSelections,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
