package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"menu-catalog-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound       = errors.New("store: category not found")
	ErrCategoryNameExists     = errors.New("store: category name already exists")
	ErrSubcategoryNotFound    = errors.New("store: subcategory not found")
	ErrSubcategoryNameExists  = errors.New("store: subcategory name already exists in category")
	ErrItemNotFound           = errors.New("store: item not found")
	ErrItemNameExists         = errors.New("store: item name already exists in its category")
	ErrAddonNotFound          = errors.New("store: addon not found")
	ErrBookingNotFound        = errors.New("store: booking not found")
	// ErrTxConflict marks a serialization abort of the booking transaction.
	// It is transient: the caller may retry the whole unit of work.
	ErrTxConflict = errors.New("store: transaction conflict, retry")
)

// PostgresStore implements the Storer interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier abstracts *sql.DB and *sql.Tx so booking queries can run either
// directly or inside the reserve transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return strings.Contains(pqErr.Constraint, constraint)
	}
	return false
}

// taxArgs flattens a tagged tax override into the two nullable columns.
func taxArgs(t domain.TaxConfig) (interface{}, interface{}) {
	if !t.Explicit {
		return nil, nil
	}
	return t.Applicable, t.Percentage
}

// scanTax rebuilds the tagged override from the nullable columns. A NULL
// applicable column means "inherit"; a missing percentage defaults to 0.
func scanTax(applicable sql.NullBool, percentage sql.NullFloat64) domain.TaxConfig {
	if !applicable.Valid {
		return domain.TaxConfig{}
	}
	return domain.ExplicitTax(applicable.Bool, percentage.Float64)
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO menu.categories (name, description, image, tax_applicable, tax_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at;
	`
	taxApplicable, taxPercentage := taxArgs(category.Tax)
	row := s.db.QueryRowContext(ctx, query,
		category.Name, category.Description, category.Image, taxApplicable, taxPercentage, category.IsActive,
	)

	created, err := scanCategory(row)
	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at
		FROM menu.categories
		WHERE id = $1;
	`
	category, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, params ListParams) ([]domain.Category, int, error) {
	countQuery := `SELECT COUNT(*) FROM menu.categories;`
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to count categories: %w", err)
	}
	if totalCount == 0 {
		return []domain.Category{}, 0, nil
	}

	query := `
		SELECT id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at
		FROM menu.categories
		ORDER BY name ASC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.db.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, params.Limit)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, totalCount, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE menu.categories
		SET name = $1, description = $2, image = $3, tax_applicable = $4, tax_percentage = $5, is_active = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at;
	`
	taxApplicable, taxPercentage := taxArgs(category.Tax)
	row := s.db.QueryRowContext(ctx, query,
		category.Name, category.Description, category.Image, taxApplicable, taxPercentage, category.IsActive, category.ID,
	)

	updated, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if isUniqueViolation(err, "categories_name_key") {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM menu.categories WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	var taxApplicable sql.NullBool
	var taxPercentage sql.NullFloat64
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Image,
		&taxApplicable, &taxPercentage, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Tax = scanTax(taxApplicable, taxPercentage)
	return &c, nil
}

// --- SubcategoryStorer Implementation ---

func (s *PostgresStore) CreateSubcategory(ctx context.Context, subcategory *domain.Subcategory) (*domain.Subcategory, error) {
	query := `
		INSERT INTO menu.subcategories (category_id, name, description, image, tax_applicable, tax_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, category_id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at;
	`
	taxApplicable, taxPercentage := taxArgs(subcategory.Tax)
	row := s.db.QueryRowContext(ctx, query,
		subcategory.CategoryID, subcategory.Name, subcategory.Description, subcategory.Image,
		taxApplicable, taxPercentage, subcategory.IsActive,
	)

	created, err := scanSubcategory(row)
	if err != nil {
		if isUniqueViolation(err, "subcategories_category_id_name_key") {
			return nil, ErrSubcategoryNameExists
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // FK violation on category_id
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateSubcategory failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetSubcategoryByID(ctx context.Context, id int64) (*domain.Subcategory, error) {
	query := `
		SELECT id, category_id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at
		FROM menu.subcategories
		WHERE id = $1;
	`
	subcategory, err := scanSubcategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubcategoryNotFound
		}
		return nil, fmt.Errorf("store: GetSubcategoryByID failed to scan row: %w", err)
	}
	return subcategory, nil
}

func (s *PostgresStore) ListSubcategories(ctx context.Context, categoryID *int64, params ListParams) ([]domain.Subcategory, int, error) {
	whereCondition := ""
	var queryArgs []interface{}
	if categoryID != nil {
		whereCondition = " WHERE category_id = $1"
		queryArgs = append(queryArgs, *categoryID)
	}

	countQuery := "SELECT COUNT(*) FROM menu.subcategories" + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListSubcategories failed to count subcategories: %w", err)
	}
	if totalCount == 0 {
		return []domain.Subcategory{}, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT id, category_id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at
		FROM menu.subcategories%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d;`, whereCondition, len(queryArgs)+1, len(queryArgs)+2)
	queryArgs = append(queryArgs, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListSubcategories failed to query subcategories: %w", err)
	}
	defer rows.Close()

	subcategories := make([]domain.Subcategory, 0, params.Limit)
	for rows.Next() {
		sc, err := scanSubcategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListSubcategories failed to scan subcategory row: %w", err)
		}
		subcategories = append(subcategories, *sc)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListSubcategories iteration error: %w", err)
	}
	return subcategories, totalCount, nil
}

func (s *PostgresStore) UpdateSubcategory(ctx context.Context, subcategory *domain.Subcategory) (*domain.Subcategory, error) {
	query := `
		UPDATE menu.subcategories
		SET category_id = $1, name = $2, description = $3, image = $4, tax_applicable = $5, tax_percentage = $6, is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING id, category_id, name, description, image, tax_applicable, tax_percentage, is_active, created_at, updated_at;
	`
	taxApplicable, taxPercentage := taxArgs(subcategory.Tax)
	row := s.db.QueryRowContext(ctx, query,
		subcategory.CategoryID, subcategory.Name, subcategory.Description, subcategory.Image,
		taxApplicable, taxPercentage, subcategory.IsActive, subcategory.ID,
	)

	updated, err := scanSubcategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubcategoryNotFound
		}
		if isUniqueViolation(err, "subcategories_category_id_name_key") {
			return nil, ErrSubcategoryNameExists
		}
		return nil, fmt.Errorf("store: UpdateSubcategory failed to scan row: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteSubcategory(ctx context.Context, id int64) error {
	query := `DELETE FROM menu.subcategories WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteSubcategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteSubcategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSubcategoryNotFound
	}
	return nil
}

func scanSubcategory(row rowScanner) (*domain.Subcategory, error) {
	var sc domain.Subcategory
	var taxApplicable sql.NullBool
	var taxPercentage sql.NullFloat64
	err := row.Scan(
		&sc.ID, &sc.CategoryID, &sc.Name, &sc.Description, &sc.Image,
		&taxApplicable, &taxPercentage, &sc.IsActive,
		&sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sc.Tax = scanTax(taxApplicable, taxPercentage)
	return &sc, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		if err := s.db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
	}
	return nil
}
