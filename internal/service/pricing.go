package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"menu-catalog-service/internal/domain"
	"menu-catalog-service/internal/store"
)

// PriceContext carries the purchase parameters for a price calculation.
// Zero values default to quantity 1, the current time and no add-ons.
type PriceContext struct {
	Quantity    int
	RequestTime time.Time
	AddonIDs    []int64
}

// AddonCharge is one resolved add-on line of a price breakdown.
type AddonCharge struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// TaxLine is the tax portion of a price breakdown.
type TaxLine struct {
	Applicable bool    `json:"applicable"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// PriceBreakdown is the final price of an item for a purchase context.
// Amount and GrandTotal are rounded to 2 decimal places for presentation;
// the intermediate figures keep full precision.
type PriceBreakdown struct {
	AppliedRule string        `json:"applied_rule"`
	BasePrice   float64       `json:"base_price"`
	Addons      []AddonCharge `json:"addons"`
	AddonTotal  float64       `json:"addon_total"`
	Subtotal    float64       `json:"subtotal"`
	Tax         TaxLine       `json:"tax"`
	GrandTotal  float64       `json:"grand_total"`
}

// PricingService computes price breakdowns. It is a pure read-side
// component: no partial state survives a failed calculation. Stateless.
type PricingService struct {
	addons store.AddonStorer
	tax    *TaxService
}

// NewPricingService creates a PricingService with its collaborators.
func NewPricingService(addons store.AddonStorer, tax *TaxService) *PricingService {
	return &PricingService{addons: addons, tax: tax}
}

// CalculatePrice resolves the base price via the item's pricing strategy,
// adds the selected active add-ons, and applies the item's effective tax.
func (s *PricingService) CalculatePrice(ctx context.Context, item *domain.Item, pctx PriceContext) (*PriceBreakdown, error) {
	quantity := pctx.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	requestTime := pctx.RequestTime
	if requestTime.IsZero() {
		requestTime = time.Now()
	}

	var basePrice float64
	var appliedRule string

	switch item.Pricing.Type {
	case domain.PricingStatic:
		basePrice = item.Pricing.BasePrice
		appliedRule = "Static pricing"

	case domain.PricingTiered:
		tier, err := findMatchingTier(item.Pricing.Tiers, quantity)
		if err != nil {
			return nil, err
		}
		basePrice = tier.Price
		appliedRule = fmt.Sprintf("Tiered pricing: %d-%d units at %g", tier.MinQuantity, tier.MaxQuantity, tier.Price)

	case domain.PricingComplimentary:
		basePrice = 0
		appliedRule = "Complimentary (Free)"

	case domain.PricingDiscounted:
		basePrice = applyDiscount(item.Pricing.BasePrice, item.Pricing.Discount)
		if d := item.Pricing.Discount; d != nil {
			appliedRule = fmt.Sprintf("Discounted: %s %g off %g", d.Type, d.Value, item.Pricing.BasePrice)
		} else {
			appliedRule = "Discounted"
		}

	case domain.PricingDynamic:
		window, ok := findActiveTimeWindow(item.Pricing.TimeWindows, requestTime)
		if !ok {
			return nil, ErrNotAvailableNow
		}
		basePrice = window.Price
		appliedRule = fmt.Sprintf("Dynamic pricing: %s-%s at %g", window.StartTime, window.EndTime, window.Price)

	default:
		return nil, ErrInvalidPricingType
	}

	addonCharges, addonTotal, err := s.resolveAddons(ctx, item.ID, pctx.AddonIDs)
	if err != nil {
		return nil, err
	}

	tax, err := s.tax.ResolveTax(ctx, item)
	if err != nil {
		return nil, err
	}

	subtotal := basePrice + addonTotal
	var taxAmount float64
	if tax.Applicable {
		taxAmount = subtotal * tax.Percentage / 100
	}

	return &PriceBreakdown{
		AppliedRule: appliedRule,
		BasePrice:   basePrice,
		Addons:      addonCharges,
		AddonTotal:  addonTotal,
		Subtotal:    subtotal,
		Tax: TaxLine{
			Applicable: tax.Applicable,
			Percentage: tax.Percentage,
			Amount:     round2(taxAmount),
		},
		GrandTotal: round2(subtotal + taxAmount),
	}, nil
}

// findMatchingTier validates the tier list is free of pairwise range
// overlaps, then selects the tier whose inclusive [min, max] range contains
// quantity.
func findMatchingTier(tiers []domain.PriceTier, quantity int) (domain.PriceTier, error) {
	if len(tiers) == 0 {
		return domain.PriceTier{}, ErrNoMatchingTier
	}
	for i := 0; i < len(tiers); i++ {
		for j := i + 1; j < len(tiers); j++ {
			if tiers[i].MinQuantity <= tiers[j].MaxQuantity && tiers[i].MaxQuantity >= tiers[j].MinQuantity {
				return domain.PriceTier{}, ErrOverlappingTiers
			}
		}
	}
	for _, tier := range tiers {
		if tier.Contains(quantity) {
			return tier, nil
		}
	}
	return domain.PriceTier{}, ErrNoMatchingTier
}

// findActiveTimeWindow selects the first window whose day-set includes the
// request weekday and whose inclusive [start, end] range contains the
// request clock time. Zero-padded "HH:MM" strings compare correctly as
// plain strings.
func findActiveTimeWindow(windows []domain.TimeWindow, requestTime time.Time) (domain.TimeWindow, bool) {
	day := domain.DayName(requestTime)
	clock := domain.ClockTime(requestTime)

	for _, window := range windows {
		for _, d := range window.Days {
			if d == day && clock >= window.StartTime && clock <= window.EndTime {
				return window, true
			}
		}
	}
	return domain.TimeWindow{}, false
}

// applyDiscount reduces basePrice by the discount descriptor, flooring the
// result at 0 so a discount can never produce a negative price.
func applyDiscount(basePrice float64, discount *domain.Discount) float64 {
	if discount == nil {
		return basePrice
	}
	finalPrice := basePrice
	switch discount.Type {
	case domain.DiscountFlat:
		finalPrice = basePrice - discount.Value
	case domain.DiscountPercentage:
		finalPrice = basePrice - basePrice*discount.Value/100
	}
	return math.Max(0, finalPrice)
}

// resolveAddons fetches the requested add-ons, dropping ids that are
// inactive, unknown, or belong to a different item.
func (s *PricingService) resolveAddons(ctx context.Context, itemID int64, addonIDs []int64) ([]AddonCharge, float64, error) {
	if len(addonIDs) == 0 {
		return []AddonCharge{}, 0, nil
	}

	addons, err := s.addons.FindActiveAddonsByIDs(ctx, addonIDs)
	if err != nil {
		return nil, 0, err
	}

	charges := []AddonCharge{}
	var total float64
	for _, addon := range addons {
		if addon.ItemID != itemID {
			continue
		}
		charges = append(charges, AddonCharge{ID: addon.ID, Name: addon.Name, Price: addon.Price})
		total += addon.Price
	}
	return charges, total, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
