package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/account"
	"gymdesk/internal/domain/entity"
)

// passwordOrEnv keeps passwords out of shell history when GYMDESK_PASSWORD is set.
func passwordOrEnv(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("GYMDESK_PASSWORD"); v != "" {
		return v, nil
	}
	return "", errors.New("password required (--password or GYMDESK_PASSWORD)")
}

func runLogin(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	emailAddr := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *emailAddr == "" {
		return errors.New("--email is required")
	}
	pw, err := passwordOrEnv(*password)
	if err != nil {
		return err
	}

	res, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{Email: *emailAddr, Password: pw},
		orchestrators.LoginDeps{Session: d.app.Session})
	if err != nil {
		return err
	}
	if res.Offline {
		fmt.Fprintf(d.out, "Signed in as %s (offline, changes will sync later)\n", res.User.DisplayName())
		return nil
	}
	fmt.Fprintf(d.out, "Signed in as %s (%s)\n", res.User.DisplayName(), res.User.Role)
	return nil
}

func runLogout(ctx context.Context, d *desk, _ []string) error {
	d.app.Session.Logout(ctx)
	fmt.Fprintln(d.out, "Signed out")
	return nil
}

func runRegister(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var reg account.Registration
	fs.StringVar(&reg.Email, "email", "", "account email")
	fs.StringVar(&reg.Username, "username", "", "username (defaults to the email's local part)")
	fs.StringVar(&reg.FirstName, "first", "", "first name")
	fs.StringVar(&reg.LastName, "last", "", "last name")
	fs.StringVar(&reg.Phone, "phone", "", "phone number")
	fs.StringVar(&reg.Role, "role", entity.RoleOwner, "owner, trainer or member")
	fs.StringVar(&reg.GymName, "gym", "", "gym name (owners)")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := passwordOrEnv(*password)
	if err != nil {
		return err
	}
	reg.Password = pw
	if reg.Username == "" {
		reg.Username, _, _ = strings.Cut(reg.Email, "@")
	}

	user, err := orchestrators.ExecuteRegister(ctx, orchestrators.RegisterInput{Registration: reg},
		orchestrators.LoginDeps{Session: d.app.Session})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Registered and signed in as %s\n", user.DisplayName())
	return nil
}

func runWhoami(ctx context.Context, d *desk, _ []string) error {
	if err := d.app.Session.RefreshUser(ctx); err != nil {
		fmt.Fprintln(d.out, "(offline, showing cached profile)")
	}
	user, ok := d.app.Session.User()
	if !ok {
		return errNotLoggedIn
	}
	fmt.Fprintf(d.out, "%s <%s>\nrole: %s\n", user.DisplayName(), user.Email, user.Role)
	if exp := d.app.Session.TokenExpiry(); !exp.IsZero() {
		fmt.Fprintf(d.out, "token expires: %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	if info, ok := d.app.GymInfo(ctx); ok {
		fmt.Fprintf(d.out, "gym: %s\n", info.Name)
	}
	return nil
}
