package service

import (
	"context"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"
)

// ResolvedTax is the effective tax of an item after walking its inheritance
// chain.
type ResolvedTax struct {
	Applicable bool    `json:"applicable"`
	Percentage float64 `json:"percentage"`
}

// TaxService resolves the effective tax of an item along the
// item -> subcategory -> category (or item -> category) chain. The chain is
// at most two hops, so resolution always terminates. Stateless.
type TaxService struct {
	categories    store.CategoryStorer
	subcategories store.SubcategoryStorer
}

// NewTaxService creates a TaxService with its storage dependencies.
func NewTaxService(categories store.CategoryStorer, subcategories store.SubcategoryStorer) *TaxService {
	return &TaxService{categories: categories, subcategories: subcategories}
}

// ResolveTax returns the effective applicability and percentage for item.
// Exactly one of five branches executes: explicit item override, explicit
// subcategory override, the subcategory's category, a direct category, or
// the no-parent default of no tax. An unset override at the end of the
// chain resolves to its zero values (not applicable, 0 percent).
func (s *TaxService) ResolveTax(ctx context.Context, item *domain.Item) (ResolvedTax, error) {
	if item.Tax.Explicit {
		return ResolvedTax{Applicable: item.Tax.Applicable, Percentage: item.Tax.Percentage}, nil
	}

	if item.SubcategoryID != nil {
		subcategory, err := s.subcategories.GetSubcategoryByID(ctx, *item.SubcategoryID)
		if err != nil {
			return ResolvedTax{}, err
		}
		if subcategory.Tax.Explicit {
			return ResolvedTax{Applicable: subcategory.Tax.Applicable, Percentage: subcategory.Tax.Percentage}, nil
		}

		category, err := s.categories.GetCategoryByID(ctx, subcategory.CategoryID)
		if err != nil {
			return ResolvedTax{}, err
		}
		return ResolvedTax{Applicable: category.Tax.Applicable, Percentage: category.Tax.Percentage}, nil
	}

	if item.CategoryID != nil {
		category, err := s.categories.GetCategoryByID(ctx, *item.CategoryID)
		if err != nil {
			return ResolvedTax{}, err
		}
		return ResolvedTax{Applicable: category.Tax.Applicable, Percentage: category.Tax.Percentage}, nil
	}

	return ResolvedTax{Applicable: false, Percentage: 0}, nil
}
