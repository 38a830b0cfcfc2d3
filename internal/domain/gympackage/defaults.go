package gympackage

import "time"

// Defaults returns the demo packages seeded into an empty catalogue.
// Final prices are frozen before they are returned.
func Defaults(now time.Time) []Package {
	pkgs := []Package{
		{
			ID:             "pkg-demo-1",
			Name:           "Monthly Gym Access",
			Type:           TypeGym,
			Description:    "Full floor access during staffed hours.",
			MRP:            2000,
			SellingPrice:   1800,
			DiscountType:   DiscountFlat,
			DiscountValue:  300,
			ValidityNumber: 1,
			ValidityUnit:   UnitMonths,
			StartRule:      StartFromPurchase,
			Features:       []string{"Gym floor access", "Locker room", "Fitness assessment"},
			Status:         StatusActive,
		},
		{
			ID:             "pkg-demo-2",
			Name:           "Quarterly Gym Access",
			Type:           TypeGym,
			Description:    "Three months of unlimited access.",
			MRP:            6000,
			SellingPrice:   5000,
			DiscountType:   DiscountPercentage,
			DiscountValue:  10,
			ValidityNumber: 3,
			ValidityUnit:   UnitMonths,
			StartRule:      StartFromFirstCheckIn,
			Features:       []string{"Gym floor access", "Locker room", "Diet consultation"},
			Status:         StatusActive,
		},
		{
			ID:             "pkg-demo-3",
			Name:           "Personal Training x12",
			Type:           TypePT,
			Description:    "Twelve one-on-one sessions with a certified trainer.",
			MRP:            12000,
			SellingPrice:   10000,
			DiscountType:   DiscountPercentage,
			DiscountValue:  5,
			ValidityNumber: 60,
			ValidityUnit:   UnitDays,
			StartRule:      StartFromFirstCheckIn,
			Features:       []string{"12 PT sessions", "Workout plan", "Progress tracking"},
			Status:         StatusActive,
		},
		{
			ID:             "pkg-demo-4",
			Name:           "Yoga & Zumba Classes",
			Type:           TypeClasses,
			MRP:            3000,
			SellingPrice:   2500,
			DiscountType:   DiscountFlat,
			DiscountValue:  0,
			ValidityNumber: 30,
			ValidityUnit:   UnitDays,
			StartRule:      StartFromPurchase,
			Features:       []string{"Unlimited group classes"},
			Status:         StatusDraft,
		},
	}
	for i := range pkgs {
		pkgs[i].CreatedAt = now
		pkgs[i].Freeze()
	}
	return pkgs
}
