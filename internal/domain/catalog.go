package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"time"
)

// Day labels used by availability day-sets and dynamic pricing windows.
// Indexed to match time.Weekday (Sunday == 0).
const (
	DaySun = "SUN"
	DayMon = "MON"
	DayTue = "TUE"
	DayWed = "WED"
	DayThu = "THU"
	DayFri = "FRI"
	DaySat = "SAT"
)

var dayNames = [7]string{DaySun, DayMon, DayTue, DayWed, DayThu, DayFri, DaySat}

// DayName maps a time value to its weekday label ("SUN".."SAT").
func DayName(t time.Time) string {
	return dayNames[int(t.Weekday())]
}

// ClockTime formats a time value as a zero-padded "HH:MM" string.
func ClockTime(t time.Time) string {
	return t.Format("15:04")
}

var clockTimeRE = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

// IsClockTime reports whether s is a valid zero-padded 24-hour "HH:MM" string.
func IsClockTime(s string) bool {
	return clockTimeRE.MatchString(s)
}

// PricingType tags the pricing strategy carried by an item.
type PricingType string

const (
	PricingStatic        PricingType = "static"
	PricingTiered        PricingType = "tiered"
	PricingComplimentary PricingType = "complimentary"
	PricingDiscounted    PricingType = "discounted"
	PricingDynamic       PricingType = "dynamic"
)

// DiscountType tags how a discount descriptor is applied to the base price.
type DiscountType string

const (
	DiscountFlat       DiscountType = "flat"
	DiscountPercentage DiscountType = "percentage"
)

// AddonSelectionType controls how add-ons within a group may be selected.
type AddonSelectionType string

const (
	AddonSelectionSingle   AddonSelectionType = "single"
	AddonSelectionMultiple AddonSelectionType = "multiple"
)

// TaxConfig is a tagged optional tax override. Explicit == false means the
// value is unset and tax must be inherited from the parent in the
// item -> subcategory -> category chain; it is NOT the same as an explicit
// "no tax" override, which is Explicit == true with Applicable == false.
type TaxConfig struct {
	Explicit   bool
	Applicable bool
	Percentage float64
}

// ExplicitTax builds a set override.
func ExplicitTax(applicable bool, percentage float64) TaxConfig {
	return TaxConfig{Explicit: true, Applicable: applicable, Percentage: percentage}
}

// taxConfigJSON is the wire shape of a set override.
type taxConfigJSON struct {
	Applicable bool    `json:"applicable"`
	Percentage float64 `json:"percentage"`
}

// MarshalJSON renders an unset override as JSON null so "inherit" stays
// distinguishable from an explicit {applicable: false} on the wire.
func (t TaxConfig) MarshalJSON() ([]byte, error) {
	if !t.Explicit {
		return []byte("null"), nil
	}
	return json.Marshal(taxConfigJSON{Applicable: t.Applicable, Percentage: t.Percentage})
}

func (t *TaxConfig) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = TaxConfig{}
		return nil
	}
	var raw taxConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = TaxConfig{Explicit: true, Applicable: raw.Applicable, Percentage: raw.Percentage}
	return nil
}

// PriceTier maps an inclusive quantity range to a fixed price.
type PriceTier struct {
	MinQuantity int     `json:"min_quantity"`
	MaxQuantity int     `json:"max_quantity"`
	Price       float64 `json:"price"`
}

// Contains reports whether quantity falls inside the tier's inclusive range.
func (t PriceTier) Contains(quantity int) bool {
	return quantity >= t.MinQuantity && quantity <= t.MaxQuantity
}

// Discount describes a flat or percentage reduction of the base price.
type Discount struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
}

// TimeWindow is a recurring weekly window with its own price, used by the
// dynamic pricing strategy. Start/End are inclusive "HH:MM" bounds.
type TimeWindow struct {
	Days      []string `json:"days"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Price     float64  `json:"price"`
}

// Pricing is the strategy-tagged pricing configuration of an item. Only the
// payload fields relevant to Type are expected to be populated.
type Pricing struct {
	Type        PricingType  `json:"type"`
	BasePrice   float64      `json:"base_price,omitempty"`
	Tiers       []PriceTier  `json:"tiers,omitempty"`
	Discount    *Discount    `json:"discount,omitempty"`
	TimeWindows []TimeWindow `json:"time_windows,omitempty"`
}

// TimeSlot is a configured recurring reservation interval with a maximum
// number of concurrent bookings.
type TimeSlot struct {
	StartTime             string `json:"start_time"`
	EndTime               string `json:"end_time"`
	MaxConcurrentBookings int    `json:"max_concurrent_bookings"`
}

// MaxCapacity returns the slot's configured capacity, defaulting to 1 when
// the field was left unset.
func (s TimeSlot) MaxCapacity() int {
	if s.MaxConcurrentBookings < 1 {
		return 1
	}
	return s.MaxConcurrentBookings
}

// Availability is the declarative weekly reservation schedule of a bookable
// item: the weekdays it operates plus its ordered time slots.
type Availability struct {
	Days      []string   `json:"days"`
	TimeSlots []TimeSlot `json:"time_slots"`
}

// HasDay reports whether the schedule includes the given weekday label.
func (a Availability) HasDay(day string) bool {
	for _, d := range a.Days {
		if d == day {
			return true
		}
	}
	return false
}

// FindSlot returns the configured slot exactly matching the (start, end)
// pair, or false when no such slot exists. Partial/custom slots are not
// bookable.
func (a Availability) FindSlot(startTime, endTime string) (TimeSlot, bool) {
	for _, s := range a.TimeSlots {
		if s.StartTime == startTime && s.EndTime == endTime {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// Category is a top-level menu grouping.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Tax         TaxConfig `json:"tax"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Subcategory always belongs to exactly one category.
type Subcategory struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Tax         TaxConfig `json:"tax"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Item is a purchasable or bookable menu entry. When catalog-linked it has
// exactly one of CategoryID / SubcategoryID set, never both.
type Item struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Description   *string      `json:"description,omitempty"`
	Image         *string      `json:"image,omitempty"`
	CategoryID    *int64       `json:"category_id,omitempty"`
	SubcategoryID *int64       `json:"subcategory_id,omitempty"`
	Tax           TaxConfig    `json:"tax"`
	Pricing       Pricing      `json:"pricing"`
	IsBookable    bool         `json:"is_bookable"`
	Availability  Availability `json:"availability"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Addon is an optional extra attached to a single item. Soft-deletable via
// IsActive.
type Addon struct {
	ID                 int64              `json:"id"`
	ItemID             int64              `json:"item_id"`
	Name               string             `json:"name"`
	Price              float64            `json:"price"`
	IsMandatory        bool               `json:"is_mandatory"`
	GroupName          *string            `json:"group_name,omitempty"`
	GroupSelectionType AddonSelectionType `json:"group_selection_type"`
	MaxSelections      *int               `json:"max_selections,omitempty"`
	IsActive           bool               `json:"is_active"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
