package main

import (
	"context"
	"flag"
	"fmt"

	"gymdesk/internal/application/orchestrators"
)

func runGym(ctx context.Context, d *desk, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		info, ok := d.app.GymInfo(ctx)
		if !ok {
			fmt.Fprintln(d.out, "No gym profile cached, run gymdesk refresh")
			return nil
		}
		fmt.Fprintf(d.out, "%s (%s)\n", info.Name, info.ID)
		for _, line := range [][2]string{
			{"address", info.Address},
			{"phone", info.Phone},
			{"email", info.Email},
			{"hours", info.OpeningHours},
		} {
			if line[1] != "" {
				fmt.Fprintf(d.out, "%-8s %s\n", line[0]+":", line[1])
			}
		}
		return nil
	}
	if args[0] != "edit" {
		return unknownSubcommand("gym", args[0])
	}

	info, _ := d.app.GymInfo(ctx)
	fs := flag.NewFlagSet("gym edit", flag.ContinueOnError)
	fs.StringVar(&info.Name, "name", info.Name, "gym name")
	fs.StringVar(&info.Address, "address", info.Address, "street address")
	fs.StringVar(&info.Phone, "phone", info.Phone, "phone")
	fs.StringVar(&info.Email, "email", info.Email, "contact email")
	fs.StringVar(&info.OpeningHours, "hours", info.OpeningHours, "opening hours")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	updated, err := orchestrators.ExecuteUpdateGym(ctx, orchestrators.UpdateGymInput{Info: info},
		orchestrators.UpdateGymDeps{Backend: d.client, Cache: d.app})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Updated %s\n", updated.Name)
	return nil
}
