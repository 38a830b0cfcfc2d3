package gympackage

import (
	"errors"
	"math"
	"strings"
	"time"

	"gymdesk/internal/domain/entity"
)

// CopySuffix is appended to the name of a cloned package.
const CopySuffix = " (Copy)"

// Type constants
const (
	TypeGym     = "Gym"
	TypePT      = "PT"
	TypeClasses = "Classes"
)

// Discount type constants
const (
	DiscountFlat       = "Flat"
	DiscountPercentage = "Percentage"
)

// Validity unit constants
const (
	UnitDays   = "Days"
	UnitMonths = "Months"
)

// Start rule constants
const (
	StartFromPurchase     = "From purchase"
	StartFromFirstCheckIn = "From first check-in"
)

// Status constants
const (
	StatusActive   = "Active"
	StatusDraft    = "Draft"
	StatusDisabled = "Disabled"
)

// Domain errors
var (
	ErrEmptyName         = errors.New("package name cannot be empty")
	ErrInvalidType       = errors.New("type must be Gym, PT or Classes")
	ErrNegativeMRP       = errors.New("MRP cannot be negative")
	ErrNonPositivePrice  = errors.New("selling price must be greater than zero")
	ErrNegativeDiscount  = errors.New("discount cannot be negative")
	ErrPercentageTooHigh = errors.New("percentage discount cannot exceed 100")
	ErrInvalidDiscount   = errors.New("discount type must be Flat or Percentage")
	ErrInvalidValidity   = errors.New("validity must be a positive number of Days or Months")
	ErrInvalidStartRule  = errors.New("start rule must be 'From purchase' or 'From first check-in'")
	ErrInvalidStatus     = errors.New("status must be Active, Draft or Disabled")
)

// Package is a membership or service offering sold by the gym.
type Package struct {
	ID             entity.ID `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Description    string    `json:"description,omitempty"`
	MRP            float64   `json:"mrp"`
	SellingPrice   float64   `json:"sellingPrice"`
	DiscountType   string    `json:"discountType"`
	DiscountValue  float64   `json:"discountValue"`
	FinalPrice     float64   `json:"finalPrice"`
	ValidityNumber int       `json:"validityNumber"`
	ValidityUnit   string    `json:"validityUnit"`
	StartRule      string    `json:"startRule"`
	Features       []string  `json:"features"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Key returns the collection key of the package.
func (p Package) Key() entity.ID { return p.ID }

// Validate checks if the Package has valid data.
// PRE: Package struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (p *Package) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Type != TypeGym && p.Type != TypePT && p.Type != TypeClasses {
		return ErrInvalidType
	}
	if p.MRP < 0 {
		return ErrNegativeMRP
	}
	if p.SellingPrice <= 0 {
		return ErrNonPositivePrice
	}
	if p.DiscountValue < 0 {
		return ErrNegativeDiscount
	}
	switch p.DiscountType {
	case DiscountFlat:
	case DiscountPercentage:
		if p.DiscountValue > 100 {
			return ErrPercentageTooHigh
		}
	default:
		return ErrInvalidDiscount
	}
	if p.ValidityNumber <= 0 || (p.ValidityUnit != UnitDays && p.ValidityUnit != UnitMonths) {
		return ErrInvalidValidity
	}
	if p.StartRule != StartFromPurchase && p.StartRule != StartFromFirstCheckIn {
		return ErrInvalidStartRule
	}
	if !ValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// ValidStatus reports whether s is a known package status.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusDraft || s == StatusDisabled
}

// FinalPrice applies the discount to the selling price.
// The selling price is the discount base, never the MRP.
// POST: Returns a value >= 0
func FinalPrice(sellingPrice float64, discountType string, discountValue float64) float64 {
	var price float64
	if discountType == DiscountFlat {
		price = sellingPrice - discountValue
	} else {
		price = sellingPrice - sellingPrice*discountValue/100
	}
	return math.Max(0, price)
}

// Freeze stores the current final price on the package.
// Called at save time only; FinalPrice is not recomputed on read.
// POST: FinalPrice reflects SellingPrice, DiscountType and DiscountValue
func (p *Package) Freeze() {
	p.FinalPrice = FinalPrice(p.SellingPrice, p.DiscountType, p.DiscountValue)
}

// Clone copies the package as a new draft.
// POST: New id and CreatedAt, Status is Draft, Name ends in " (Copy)"
func (p Package) Clone(id entity.ID, now time.Time) Package {
	c := p
	c.ID = id
	c.Name = p.Name + CopySuffix
	c.Status = StatusDraft
	c.CreatedAt = now
	c.Features = append([]string(nil), p.Features...)
	return c
}

// ExpiresAt returns the end of the validity period for a package started at start.
func (p Package) ExpiresAt(start time.Time) time.Time {
	if p.ValidityUnit == UnitMonths {
		return start.AddDate(0, p.ValidityNumber, 0)
	}
	return start.AddDate(0, 0, p.ValidityNumber)
}

// DiscountPercentOfMRP reports how far the final price sits below the MRP, in percent.
// Display only; zero when MRP is not set.
func (p Package) DiscountPercentOfMRP() float64 {
	if p.MRP <= 0 || p.FinalPrice >= p.MRP {
		return 0
	}
	return math.Round((p.MRP-p.FinalPrice)/p.MRP*1000) / 10
}
