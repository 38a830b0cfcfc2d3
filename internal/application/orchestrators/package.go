package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gympackage"
)

// Packages never reach the backend; they live in the durable store only.

// SavePackageInput carries input for creating or editing a package.
// An empty ID creates a new package.
type SavePackageInput struct {
	ID             entity.ID
	Name           string
	Type           string
	Description    string
	MRP            float64
	SellingPrice   float64
	DiscountType   string
	DiscountValue  float64
	ValidityNumber int
	ValidityUnit   string
	StartRule      string
	Features       []string
	Status         string
}

// PackageDeps holds dependencies shared by the package orchestrators.
type PackageDeps struct {
	Packages   *state.Collection[gympackage.Package]
	Activities *state.ActivityLog
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteSavePackage creates or edits a package with a frozen final price.
// PRE: input passes package validation; a non-empty ID exists
// POST: FinalPrice equals FinalPrice(SellingPrice, DiscountType, DiscountValue) at save time
func ExecuteSavePackage(ctx context.Context, input SavePackageInput, deps PackageDeps) (gympackage.Package, error) {
	p := gympackage.Package{
		ID:             input.ID,
		Name:           strings.TrimSpace(input.Name),
		Type:           input.Type,
		Description:    strings.TrimSpace(input.Description),
		MRP:            input.MRP,
		SellingPrice:   input.SellingPrice,
		DiscountType:   input.DiscountType,
		DiscountValue:  input.DiscountValue,
		ValidityNumber: input.ValidityNumber,
		ValidityUnit:   input.ValidityUnit,
		StartRule:      input.StartRule,
		Features:       cleanFeatures(input.Features),
		Status:         input.Status,
	}
	if p.DiscountType == "" {
		p.DiscountType = gympackage.DiscountFlat
	}
	if p.StartRule == "" {
		p.StartRule = gympackage.StartFromPurchase
	}
	if p.Status == "" {
		p.Status = gympackage.StatusDraft
	}
	if err := p.Validate(); err != nil {
		return gympackage.Package{}, err
	}
	p.Freeze()

	if input.ID == "" {
		p.ID = entity.ID(deps.GenerateID())
		p.CreatedAt = deps.Now()
		if err := deps.Packages.Add(ctx, p); err != nil {
			return gympackage.Package{}, err
		}
		if _, err := deps.Activities.Append(ctx, activity.PackageAdded, "Added package "+p.Name, priceDetails(p), nil); err != nil {
			warnActivity(activity.PackageAdded, err)
		}
		slog.Info("package_event", "event", "package_added", "package_id", p.ID, "final_price", p.FinalPrice)
		return p, nil
	}

	updated, ok := deps.Packages.Update(ctx, input.ID, func(cur *gympackage.Package) {
		p.CreatedAt = cur.CreatedAt
		*cur = p
	})
	if !ok {
		return gympackage.Package{}, fmt.Errorf("package %s: %w", input.ID, state.ErrNotFound)
	}
	if _, err := deps.Activities.Append(ctx, activity.PackageEdited, "Updated package "+updated.Name, priceDetails(updated), nil); err != nil {
		warnActivity(activity.PackageEdited, err)
	}
	slog.Info("package_event", "event", "package_edited", "package_id", updated.ID, "final_price", updated.FinalPrice)
	return updated, nil
}

func cleanFeatures(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func priceDetails(p gympackage.Package) string {
	return fmt.Sprintf("%s, final price %.2f", p.Type, p.FinalPrice)
}

// ClonePackageInput carries input for the clone orchestrator.
type ClonePackageInput struct {
	PackageID entity.ID
}

// ExecuteClonePackage copies a package as a new draft.
// PRE: PackageID exists
// POST: the clone has a fresh id and CreatedAt, Draft status and a " (Copy)" name
func ExecuteClonePackage(ctx context.Context, input ClonePackageInput, deps PackageDeps) (gympackage.Package, error) {
	src, ok := deps.Packages.Get(input.PackageID)
	if !ok {
		return gympackage.Package{}, fmt.Errorf("package %s: %w", input.PackageID, state.ErrNotFound)
	}
	c := src.Clone(entity.ID(deps.GenerateID()), deps.Now())
	if err := deps.Packages.Add(ctx, c); err != nil {
		return gympackage.Package{}, err
	}
	if _, err := deps.Activities.Append(ctx, activity.PackageCloned, "Cloned package "+src.Name, "New draft "+c.Name, nil); err != nil {
		warnActivity(activity.PackageCloned, err)
	}

	slog.Info("package_event", "event", "package_cloned", "source_id", src.ID, "package_id", c.ID)
	return c, nil
}

// ChangePackageStatusInput carries input for the status orchestrator.
type ChangePackageStatusInput struct {
	PackageID entity.ID
	Status    string
}

// ExecuteChangePackageStatus moves a package between Active, Draft and Disabled.
// PRE: Status is valid; PackageID exists
// POST: only Status changes; FinalPrice stays frozen
func ExecuteChangePackageStatus(ctx context.Context, input ChangePackageStatusInput, deps PackageDeps) (gympackage.Package, error) {
	if !gympackage.ValidStatus(input.Status) {
		return gympackage.Package{}, gympackage.ErrInvalidStatus
	}
	var previous string
	updated, ok := deps.Packages.Update(ctx, input.PackageID, func(p *gympackage.Package) {
		previous = p.Status
		p.Status = input.Status
	})
	if !ok {
		return gympackage.Package{}, fmt.Errorf("package %s: %w", input.PackageID, state.ErrNotFound)
	}
	details := fmt.Sprintf("Status %s to %s", previous, updated.Status)
	if _, err := deps.Activities.Append(ctx, activity.PackageStatusChanged, "Changed status of "+updated.Name, details, nil); err != nil {
		warnActivity(activity.PackageStatusChanged, err)
	}

	slog.Info("package_event", "event", "package_status_changed", "package_id", updated.ID, "from", previous, "to", updated.Status)
	return updated, nil
}

// DeletePackageInput carries input for the delete package orchestrator.
type DeletePackageInput struct {
	PackageID entity.ID
}

// ExecuteDeletePackage removes a package and records a restorable snapshot.
// Members keep their packageId and packageName.
// PRE: PackageID exists
// POST: package is gone and a package_deleted activity holds its snapshot
func ExecuteDeletePackage(ctx context.Context, input DeletePackageInput, deps PackageDeps) (activity.Activity, error) {
	removed, ok := deps.Packages.Remove(ctx, input.PackageID)
	if !ok {
		return activity.Activity{}, fmt.Errorf("package %s: %w", input.PackageID, state.ErrNotFound)
	}
	a, err := deps.Activities.Append(ctx, activity.PackageDeleted, "Deleted package "+removed.Name, "", activity.PackageSnapshot(removed))
	if err != nil {
		return activity.Activity{}, err
	}

	slog.Info("package_event", "event", "package_deleted", "package_id", removed.ID, "activity_id", a.ID)
	return a, nil
}

// ExecuteSeedPackages adds the demo packages when none exist.
// POST: Returns the number of packages added; zero when Packages was non-empty
func ExecuteSeedPackages(ctx context.Context, deps PackageDeps) (int, error) {
	if deps.Packages.Len() > 0 {
		return 0, nil
	}
	seeds := gympackage.Defaults(deps.Now())
	for _, p := range seeds {
		if err := deps.Packages.Add(ctx, p); err != nil {
			return 0, fmt.Errorf("seed %s: %w", p.ID, err)
		}
	}

	slog.Info("package_event", "event", "packages_seeded", "count", len(seeds))
	return len(seeds), nil
}
