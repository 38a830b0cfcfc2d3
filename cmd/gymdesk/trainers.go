package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/trainer"
)

func runTrainers(ctx context.Context, d *desk, args []string) error {
	if len(args) == 0 {
		return trainersList(d, nil)
	}
	switch args[0] {
	case "list", "ls":
		return trainersList(d, args[1:])
	case "add":
		return trainersAdd(ctx, d, args[1:])
	case "edit":
		return trainersEdit(ctx, d, args[1:])
	case "rm", "delete":
		return trainersRemove(ctx, d, args[1:])
	case "program":
		return trainersProgram(ctx, d, args[1:])
	default:
		return unknownSubcommand("trainers", args[0])
	}
}

func trainersList(d *desk, args []string) error {
	fs := flag.NewFlagSet("trainers list", flag.ContinueOnError)
	lf := newListFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	params := lf.params(nil, nil)

	var rows []trainer.Trainer
	for _, t := range d.app.Trainers.All() {
		if params.Matches(t.FullName(), t.Email, t.Specialization) {
			rows = append(rows, t)
		}
	}
	slices.SortFunc(rows, func(a, b trainer.Trainer) int {
		return cmp.Compare(strings.ToLower(a.FullName()), strings.ToLower(b.FullName()))
	})
	page, info := listutil.Page(rows, params.PageParams)

	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSPECIALIZATION\tYEARS\tSYNC")
	for _, t := range page {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", t.ID, t.FullName(), t.Email, t.Specialization, t.ExperienceYears, t.SyncStatus)
	}
	tw.Flush()
	printPageFooter(d, info)
	return nil
}

func trainersAdd(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("trainers add", flag.ContinueOnError)
	var in orchestrators.AddTrainerInput
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Phone, "phone", "", "phone")
	fs.StringVar(&in.Username, "username", "", "username (defaults to the email's local part)")
	fs.StringVar(&in.Specialization, "specialization", "", "e.g. Strength, Yoga")
	fs.IntVar(&in.ExperienceYears, "years", 0, "years of experience")
	certs := fs.String("certs", "", "comma-separated certifications")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.Certifications = splitList(*certs)

	t, err := orchestrators.ExecuteAddTrainer(ctx, in, orchestrators.AddTrainerDeps{
		Trainers:   d.app.Trainers,
		Activities: d.app.Activities,
		Backend:    d.client,
		Outbox:     d.outbox,
		Now:        time.Now,
		GenerateID: newID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Added trainer %s (%s)\n", t.FullName(), t.ID)
	if t.SyncStatus == entity.SyncPending {
		fmt.Fprintln(d.out, "(offline, queued for sync)")
	}
	return nil
}

func trainersEdit(ctx context.Context, d *desk, args []string) error {
	id, rest, err := idArg("trainers edit", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("trainers edit", flag.ContinueOnError)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	emailAddr := fs.String("email", "", "email")
	phone := fs.String("phone", "", "phone")
	specialty := fs.String("specialization", "", "specialization")
	years := fs.Int("years", 0, "years of experience")
	certs := fs.String("certs", "", "comma-separated certifications (replaces the list)")
	active := fs.Bool("active", true, "trainer is active")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	set := visited(fs)
	var patch orchestrators.TrainerPatch
	if set["first"] {
		patch.FirstName = first
	}
	if set["last"] {
		patch.LastName = last
	}
	if set["email"] {
		patch.Email = emailAddr
	}
	if set["phone"] {
		patch.Phone = phone
	}
	if set["specialization"] {
		patch.Specialization = specialty
	}
	if set["years"] {
		patch.ExperienceYears = years
	}
	if set["certs"] {
		list := splitList(*certs)
		patch.Certifications = &list
	}
	if set["active"] {
		patch.IsActive = active
	}

	t, err := orchestrators.ExecuteUpdateTrainer(ctx, orchestrators.UpdateTrainerInput{TrainerID: id, Patch: patch},
		orchestrators.UpdateTrainerDeps{
			Trainers:   d.app.Trainers,
			Activities: d.app.Activities,
			Outbox:     d.outbox,
			Now:        time.Now,
			GenerateID: newID,
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Updated trainer %s\n", t.FullName())
	d.flush(ctx)
	return nil
}

func trainersRemove(ctx context.Context, d *desk, args []string) error {
	id, _, err := idArg("trainers rm", args)
	if err != nil {
		return err
	}
	act, err := orchestrators.ExecuteDeleteTrainer(ctx, orchestrators.DeleteTrainerInput{TrainerID: id},
		orchestrators.DeleteTrainerDeps{
			Trainers:   d.app.Trainers,
			Activities: d.app.Activities,
			Outbox:     d.outbox,
			Now:        time.Now,
			GenerateID: newID,
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s (undo: gymdesk activity restore %s)\n", act.Description, act.ID)
	d.flush(ctx)
	return nil
}

func trainersProgram(ctx context.Context, d *desk, args []string) error {
	id, rest, err := idArg("trainers program", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("trainers program", flag.ContinueOnError)
	var p trainer.Program
	fs.StringVar(&p.Name, "name", "", "program name")
	fs.StringVar(&p.Description, "desc", "", "description")
	fs.IntVar(&p.DurationWeeks, "weeks", 0, "duration in weeks")
	fs.StringVar(&p.Level, "level", "", "e.g. beginner")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	created, err := orchestrators.ExecuteCreateTrainerProgram(ctx,
		orchestrators.CreateTrainerProgramInput{TrainerID: id, Program: p},
		orchestrators.CreateTrainerProgramDeps{Trainers: d.app.Trainers, Backend: d.client})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Created program %q (%s)\n", created.Name, created.ID)
	return nil
}
