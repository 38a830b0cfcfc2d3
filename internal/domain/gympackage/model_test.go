package gympackage_test

import (
	"reflect"
	"testing"
	"time"

	"gymdesk/internal/domain/gympackage"
)

func samplePackage() gympackage.Package {
	p := gympackage.Package{
		ID:             "pkg-1",
		Name:           "Monthly",
		Type:           gympackage.TypeGym,
		MRP:            3000,
		SellingPrice:   2250,
		DiscountType:   gympackage.DiscountPercentage,
		DiscountValue:  25,
		ValidityNumber: 1,
		ValidityUnit:   gympackage.UnitMonths,
		StartRule:      gympackage.StartFromPurchase,
		Features:       []string{"Gym floor", "Locker"},
		Status:         gympackage.StatusActive,
		CreatedAt:      time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	p.Freeze()
	return p
}

// TestFinalPrice tests the discount formula against the selling price base.
func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name          string
		sellingPrice  float64
		discountType  string
		discountValue float64
		want          float64
	}{
		{"flat", 1800, gympackage.DiscountFlat, 300, 1500},
		{"flat clamps at zero", 500, gympackage.DiscountFlat, 800, 0},
		{"percentage from selling price", 2250, gympackage.DiscountPercentage, 25, 1687.5},
		{"percentage zero", 1000, gympackage.DiscountPercentage, 0, 1000},
		{"percentage hundred", 1000, gympackage.DiscountPercentage, 100, 0},
		{"percentage over hundred clamps", 1000, gympackage.DiscountPercentage, 150, 0},
		{"zero price", 0, gympackage.DiscountFlat, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gympackage.FinalPrice(tt.sellingPrice, tt.discountType, tt.discountValue)
			if got != tt.want {
				t.Errorf("FinalPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestFinalPrice_NeverNegative sweeps inputs to check the clamp.
func TestFinalPrice_NeverNegative(t *testing.T) {
	for price := 0.0; price <= 5000; price += 250 {
		for discount := 0.0; discount <= 6000; discount += 500 {
			for _, dt := range []string{gympackage.DiscountFlat, gympackage.DiscountPercentage} {
				if got := gympackage.FinalPrice(price, dt, discount); got < 0 {
					t.Fatalf("FinalPrice(%v, %s, %v) = %v, want >= 0", price, dt, discount, got)
				}
			}
		}
	}
}

// TestFreeze_IsNotLive tests that FinalPrice stays frozen until the next save.
func TestFreeze_IsNotLive(t *testing.T) {
	p := samplePackage()
	if p.FinalPrice != 1687.5 {
		t.Fatalf("FinalPrice = %v, want 1687.5", p.FinalPrice)
	}
	p.SellingPrice = 4000
	if p.FinalPrice != 1687.5 {
		t.Errorf("FinalPrice changed without a save: %v", p.FinalPrice)
	}
	p.Freeze()
	if p.FinalPrice != 3000 {
		t.Errorf("FinalPrice after Freeze = %v, want 3000", p.FinalPrice)
	}
}

// TestClone tests the clone invariants.
func TestClone(t *testing.T) {
	src := samplePackage()
	now := src.CreatedAt.Add(48 * time.Hour)
	c := src.Clone("pkg-2", now)

	if c.ID == src.ID {
		t.Error("clone must have a new id")
	}
	if c.Status != gympackage.StatusDraft {
		t.Errorf("Status = %s, want Draft", c.Status)
	}
	if c.Name != "Monthly (Copy)" {
		t.Errorf("Name = %q", c.Name)
	}
	if c.CreatedAt.Before(src.CreatedAt) {
		t.Error("clone CreatedAt must not precede the source")
	}

	// every other field is copied verbatim
	c.ID, c.Name, c.Status, c.CreatedAt = src.ID, src.Name, src.Status, src.CreatedAt
	if !reflect.DeepEqual(c, src) {
		t.Errorf("clone differs from source:\n got %+v\nwant %+v", c, src)
	}

	// features do not alias
	c.Features[0] = "changed"
	if src.Features[0] != "Gym floor" {
		t.Error("clone shares the features slice with the source")
	}
}

// TestPackageValidation tests validation of Package.
func TestPackageValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *gympackage.Package)
		wantErr error
	}{
		{"valid", func(p *gympackage.Package) {}, nil},
		{"empty name", func(p *gympackage.Package) { p.Name = "" }, gympackage.ErrEmptyName},
		{"bad type", func(p *gympackage.Package) { p.Type = "Spa" }, gympackage.ErrInvalidType},
		{"negative mrp", func(p *gympackage.Package) { p.MRP = -1 }, gympackage.ErrNegativeMRP},
		{"zero price", func(p *gympackage.Package) { p.SellingPrice = 0 }, gympackage.ErrNonPositivePrice},
		{"negative discount", func(p *gympackage.Package) { p.DiscountValue = -5 }, gympackage.ErrNegativeDiscount},
		{"percentage over 100", func(p *gympackage.Package) { p.DiscountValue = 101 }, gympackage.ErrPercentageTooHigh},
		{"flat above price allowed", func(p *gympackage.Package) {
			p.DiscountType = gympackage.DiscountFlat
			p.DiscountValue = 9999
		}, nil},
		{"bad discount type", func(p *gympackage.Package) { p.DiscountType = "BOGO" }, gympackage.ErrInvalidDiscount},
		{"zero validity", func(p *gympackage.Package) { p.ValidityNumber = 0 }, gympackage.ErrInvalidValidity},
		{"bad unit", func(p *gympackage.Package) { p.ValidityUnit = "Weeks" }, gympackage.ErrInvalidValidity},
		{"bad start rule", func(p *gympackage.Package) { p.StartRule = "Whenever" }, gympackage.ErrInvalidStartRule},
		{"bad status", func(p *gympackage.Package) { p.Status = "Archived" }, gympackage.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePackage()
			tt.mutate(&p)
			if err := p.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestExpiresAt tests validity arithmetic.
func TestExpiresAt(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	p := samplePackage()
	p.ValidityUnit, p.ValidityNumber = gympackage.UnitDays, 30
	if got := p.ExpiresAt(start); !got.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ExpiresAt(30 days) = %v", got)
	}
	p.ValidityUnit, p.ValidityNumber = gympackage.UnitMonths, 2
	if got := p.ExpiresAt(start); !got.Equal(start.AddDate(0, 2, 0)) {
		t.Errorf("ExpiresAt(2 months) = %v", got)
	}
}

// TestDefaults tests that demo packages are valid and priced.
func TestDefaults(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for _, p := range gympackage.Defaults(now) {
		if err := p.Validate(); err != nil {
			t.Errorf("default %s invalid: %v", p.ID, err)
		}
		if p.FinalPrice != gympackage.FinalPrice(p.SellingPrice, p.DiscountType, p.DiscountValue) {
			t.Errorf("default %s has unfrozen price", p.ID)
		}
		if seen[string(p.ID)] {
			t.Errorf("duplicate default id %s", p.ID)
		}
		seen[string(p.ID)] = true
	}
}

// TestDiscountPercentOfMRP tests the display helper.
func TestDiscountPercentOfMRP(t *testing.T) {
	p := samplePackage()
	if got := p.DiscountPercentOfMRP(); got != 43.8 {
		t.Errorf("DiscountPercentOfMRP() = %v, want 43.8", got)
	}
	p.MRP = 0
	if got := p.DiscountPercentOfMRP(); got != 0 {
		t.Errorf("DiscountPercentOfMRP() without MRP = %v, want 0", got)
	}
}
