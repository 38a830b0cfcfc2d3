package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/export"
)

func runMembers(ctx context.Context, d *desk, args []string) error {
	if len(args) == 0 {
		return membersList(ctx, d, nil)
	}
	switch args[0] {
	case "list", "ls":
		return membersList(ctx, d, args[1:])
	case "add":
		return membersAdd(ctx, d, args[1:])
	case "edit":
		return membersEdit(ctx, d, args[1:])
	case "rm", "delete":
		return membersRemove(ctx, d, args[1:])
	case "export":
		return membersExport(d, args[1:])
	default:
		return unknownSubcommand("members", args[0])
	}
}

func membersList(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("members list", flag.ContinueOnError)
	lf := newListFlags(fs, projections.MemberFilterKeys...)
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := projections.QueryGetMemberList(ctx, projections.GetMemberListQuery{
		Params:        lf.params(projections.MemberSortColumns, projections.MemberFilterKeys),
		Today:         time.Now(),
		ExpiryWarning: d.cfg.ExpiryWarning,
	}, projections.GetMemberListDeps{Members: d.app.Members, Trainers: d.app.Trainers})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPACKAGE\tEXPIRES\tSTATUS\tTRAINER\tSYNC")
	for _, m := range result.Members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.FullName(), m.Email, m.PackageName, m.ExpiryDate, m.Status, m.TrainerName, m.SyncStatus)
	}
	tw.Flush()
	printPageFooter(d, result.PageInfo)
	return nil
}

func membersAdd(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("members add", flag.ContinueOnError)
	var in orchestrators.AddMemberInput
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Phone, "phone", "", "phone")
	fs.StringVar(&in.Username, "username", "", "username (defaults to the email's local part)")
	trainerID := fs.String("trainer", "", "trainer id")
	packageID := fs.String("package", "", "package id; sets the expiry from its validity")
	fs.StringVar(&in.JoinDate, "joined", "", "join date YYYY-MM-DD (default today)")
	fs.StringVar(&in.ExpiryDate, "expires", "", "expiry date YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.TrainerID = entity.ID(*trainerID)
	in.PackageID = entity.ID(*packageID)

	m, err := orchestrators.ExecuteAddMember(ctx, in, orchestrators.AddMemberDeps{
		Members:    d.app.Members,
		Packages:   d.app.Packages,
		Activities: d.app.Activities,
		Backend:    d.client,
		Outbox:     d.outbox,
		Now:        time.Now,
		GenerateID: newID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Added member %s (%s)\n", m.FullName(), m.ID)
	if m.SyncStatus == entity.SyncPending {
		fmt.Fprintln(d.out, "(offline, queued for sync)")
	}
	return nil
}

func membersEdit(ctx context.Context, d *desk, args []string) error {
	id, rest, err := idArg("members edit", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("members edit", flag.ContinueOnError)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	emailAddr := fs.String("email", "", "email")
	phone := fs.String("phone", "", "phone")
	trainerID := fs.String("trainer", "", "trainer id (empty to unassign)")
	packageID := fs.String("package", "", "package id")
	expires := fs.String("expires", "", "expiry date YYYY-MM-DD")
	active := fs.Bool("active", true, "membership is active")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	set := visited(fs)
	var patch orchestrators.MemberPatch
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
	if set["trainer"] {
		tid := entity.ID(*trainerID)
		patch.TrainerID = &tid
	}
	if set["package"] {
		pid := entity.ID(*packageID)
		patch.PackageID = &pid
	}
	if set["expires"] {
		patch.ExpiryDate = expires
	}
	if set["active"] {
		patch.IsActive = active
	}

	m, err := orchestrators.ExecuteUpdateMember(ctx, orchestrators.UpdateMemberInput{MemberID: id, Patch: patch},
		orchestrators.UpdateMemberDeps{
			Members:    d.app.Members,
			Packages:   d.app.Packages,
			Activities: d.app.Activities,
			Outbox:     d.outbox,
			Now:        time.Now,
			GenerateID: newID,
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Updated member %s\n", m.FullName())
	d.flush(ctx)
	return nil
}

func membersRemove(ctx context.Context, d *desk, args []string) error {
	id, _, err := idArg("members rm", args)
	if err != nil {
		return err
	}
	act, err := orchestrators.ExecuteDeleteMember(ctx, orchestrators.DeleteMemberInput{MemberID: id},
		orchestrators.DeleteMemberDeps{
			Members:    d.app.Members,
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

// membersExport writes one member's data as JSON, or the whole roster as CSV
// when no id is given.
func membersExport(d *desk, args []string) error {
	var id entity.ID
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, args = entity.ID(args[0]), args[1:]
	}
	fs := flag.NewFlagSet("members export", flag.ContinueOnError)
	format := fs.String("format", "", "json (one member) or csv (roster)")
	outPath := fs.String("out", "", "write to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format == "" {
		*format = export.FormatCSV
		if id != "" {
			*format = export.FormatJSON
		}
	}
	if !export.ValidFormat(*format) {
		return export.ErrInvalidFormat
	}

	w := d.out
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	trainerNames := make(map[entity.ID]string)
	for _, t := range d.app.Trainers.All() {
		trainerNames[t.ID] = t.FullName()
	}

	if id == "" {
		if *format != export.FormatCSV {
			return errors.New("roster export is csv only, pass a member id for json")
		}
		return export.WriteRosterCSV(w, d.app.Members.All(), trainerNames, d.app.Payments.All(), time.Now(), d.cfg.ExpiryWarning)
	}
	if *format != export.FormatJSON {
		return errors.New("member export is json only, omit the id for the csv roster")
	}

	m, ok := d.app.Members.Get(id)
	if !ok {
		return fmt.Errorf("member %s: %w", id, errNoSuchEntity)
	}
	data, err := export.BuildMemberData(export.Source{
		Member:        m,
		TrainerName:   trainerNames[m.TrainerID],
		Payments:      d.app.Payments.All(),
		Activities:    d.app.Activities.All(),
		Now:           time.Now(),
		ExpiryWarning: d.cfg.ExpiryWarning,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
