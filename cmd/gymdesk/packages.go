package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gympackage"
)

var packageFilterKeys = []string{"status", "type"}

func runPackages(ctx context.Context, d *desk, args []string) error {
	if len(args) == 0 {
		return packagesList(d, nil)
	}
	switch args[0] {
	case "list", "ls":
		return packagesList(d, args[1:])
	case "show":
		return packagesShow(d, args[1:])
	case "add":
		return packagesSave(ctx, d, "", args[1:])
	case "edit":
		id, rest, err := idArg("packages edit", args[1:])
		if err != nil {
			return err
		}
		return packagesSave(ctx, d, id, rest)
	case "clone":
		return packagesClone(ctx, d, args[1:])
	case "status":
		return packagesStatus(ctx, d, args[1:])
	case "rm", "delete":
		return packagesRemove(ctx, d, args[1:])
	case "seed":
		n, err := orchestrators.ExecuteSeedPackages(ctx, packageDeps(d))
		if err != nil {
			return err
		}
		fmt.Fprintf(d.out, "Added %d demo package(s)\n", n)
		return nil
	default:
		return unknownSubcommand("packages", args[0])
	}
}

func packageDeps(d *desk) orchestrators.PackageDeps {
	return orchestrators.PackageDeps{
		Packages:   d.app.Packages,
		Activities: d.app.Activities,
		Now:        time.Now,
		GenerateID: newID,
	}
}

func packagesList(d *desk, args []string) error {
	fs := flag.NewFlagSet("packages list", flag.ContinueOnError)
	lf := newListFlags(fs, packageFilterKeys...)
	if err := fs.Parse(args); err != nil {
		return err
	}
	params := lf.params(nil, packageFilterKeys)

	var rows []gympackage.Package
	for _, p := range d.app.Packages.All() {
		if s := params.Filters["status"]; s != "" && !strings.EqualFold(p.Status, s) {
			continue
		}
		if t := params.Filters["type"]; t != "" && !strings.EqualFold(p.Type, t) {
			continue
		}
		if params.Matches(p.Name, p.Description) {
			rows = append(rows, p)
		}
	}
	page, info := listutil.Page(rows, params.PageParams)

	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tMRP\tPRICE\tVALIDITY\tSTATUS")
	for _, p := range page {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%d %s\t%s\n",
			p.ID, p.Name, p.Type, p.MRP, p.FinalPrice, p.ValidityNumber, p.ValidityUnit, p.Status)
	}
	tw.Flush()
	printPageFooter(d, info)
	return nil
}

func packagesShow(d *desk, args []string) error {
	id, _, err := idArg("packages show", args)
	if err != nil {
		return err
	}
	p, ok := d.app.Packages.Get(id)
	if !ok {
		return fmt.Errorf("package %s: %w", id, errNoSuchEntity)
	}
	fmt.Fprintf(d.out, "%s (%s, %s)\n", p.Name, p.Type, p.Status)
	fmt.Fprintf(d.out, "MRP %.2f, selling %.2f, final %.2f (%.1f%% off MRP)\n",
		p.MRP, p.SellingPrice, p.FinalPrice, p.DiscountPercentOfMRP())
	fmt.Fprintf(d.out, "Valid %d %s, starts %s\n", p.ValidityNumber, p.ValidityUnit, strings.ToLower(p.StartRule))
	for _, f := range p.Features {
		fmt.Fprintf(d.out, "  - %s\n", f)
	}
	if p.Description != "" {
		fmt.Fprintf(d.out, "\n%s\n", p.Description)
	}
	return nil
}

var errNoSuchEntity = errors.New("not found")

// packagesSave creates a package when id is empty, otherwise edits it in place.
// Flags not given on an edit keep the stored value.
func packagesSave(ctx context.Context, d *desk, id entity.ID, args []string) error {
	in := orchestrators.SavePackageInput{ID: id}
	if id != "" {
		p, ok := d.app.Packages.Get(id)
		if !ok {
			return fmt.Errorf("package %s: %w", id, errNoSuchEntity)
		}
		in = orchestrators.SavePackageInput{
			ID:             p.ID,
			Name:           p.Name,
			Type:           p.Type,
			Description:    p.Description,
			MRP:            p.MRP,
			SellingPrice:   p.SellingPrice,
			DiscountType:   p.DiscountType,
			DiscountValue:  p.DiscountValue,
			ValidityNumber: p.ValidityNumber,
			ValidityUnit:   p.ValidityUnit,
			StartRule:      p.StartRule,
			Features:       p.Features,
			Status:         p.Status,
		}
	}

	fs := flag.NewFlagSet("packages save", flag.ContinueOnError)
	fs.StringVar(&in.Name, "name", in.Name, "package name")
	fs.StringVar(&in.Type, "type", cmp.Or(in.Type, gympackage.TypeGym), "Gym, PT or Classes")
	fs.StringVar(&in.Description, "desc", in.Description, "description (Markdown)")
	fs.Float64Var(&in.MRP, "mrp", in.MRP, "list price")
	fs.Float64Var(&in.SellingPrice, "price", in.SellingPrice, "selling price")
	fs.StringVar(&in.DiscountType, "discount-type", in.DiscountType, "Flat or Percentage")
	fs.Float64Var(&in.DiscountValue, "discount", in.DiscountValue, "discount amount or percent")
	fs.IntVar(&in.ValidityNumber, "validity", in.ValidityNumber, "validity length")
	fs.StringVar(&in.ValidityUnit, "unit", cmp.Or(in.ValidityUnit, gympackage.UnitMonths), "Days or Months")
	fs.StringVar(&in.StartRule, "start", in.StartRule, "From purchase or From first check-in")
	fs.StringVar(&in.Status, "status", in.Status, "Active, Draft or Disabled")
	features := fs.String("features", strings.Join(in.Features, ","), "comma-separated features")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.Features = splitList(*features)

	p, err := orchestrators.ExecuteSavePackage(ctx, in, packageDeps(d))
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Saved package %s (%s), final price %.2f\n", p.Name, p.ID, p.FinalPrice)
	return nil
}

func packagesClone(ctx context.Context, d *desk, args []string) error {
	id, _, err := idArg("packages clone", args)
	if err != nil {
		return err
	}
	p, err := orchestrators.ExecuteClonePackage(ctx, orchestrators.ClonePackageInput{PackageID: id}, packageDeps(d))
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Cloned as %s (%s)\n", p.Name, p.ID)
	return nil
}

func packagesStatus(ctx context.Context, d *desk, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: gymdesk packages status <id> <Active|Draft|Disabled>")
	}
	p, err := orchestrators.ExecuteChangePackageStatus(ctx,
		orchestrators.ChangePackageStatusInput{PackageID: entity.ID(args[0]), Status: args[1]}, packageDeps(d))
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s is now %s\n", p.Name, p.Status)
	return nil
}

func packagesRemove(ctx context.Context, d *desk, args []string) error {
	id, _, err := idArg("packages rm", args)
	if err != nil {
		return err
	}
	act, err := orchestrators.ExecuteDeletePackage(ctx, orchestrators.DeletePackageInput{PackageID: id}, packageDeps(d))
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s (undo: gymdesk activity restore %s)\n", act.Description, act.ID)
	return nil
}
