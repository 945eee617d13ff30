package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the account fields and creates the account. The new
// user is logged in on success.
func (a *App) Register(ctx context.Context) error {
	if a.isLoggedIn() {
		return a.report(ctx, "register", errAlreadyLoggedIn)
	}

	var f models.RegisterForm
	var err error
	if f.Username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
		return err
	}
	if f.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if f.Password, err = getPassword("Enter password", a.out); err != nil {
		return err
	}
	if f.ConfirmPassword, err = getPassword("Confirm password", a.out); err != nil {
		return err
	}
	role, err := getSimpleText(a.reader, "Role: reader or author (default reader)", a.out)
	if err != nil {
		return err
	}
	f.Role = models.Role(role)

	u, err := a.session.Register(ctx, f)
	if err != nil {
		return a.report(ctx, "register", err)
	}
	fmt.Fprintf(a.out, "Welcome, %s! You are registered as %s.\n", u.Username, u.Role)
	return nil
}

// Login prompts for email and password.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		return a.report(ctx, "login", errAlreadyLoggedIn)
	}

	var f models.LoginForm
	var err error
	if f.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if f.Password, err = getPassword("Enter password", a.out); err != nil {
		return err
	}

	u, err := a.session.Login(ctx, f)
	if err != nil {
		return a.report(ctx, "login", err)
	}
	a.resources.ClearOwned()
	fmt.Fprintf(a.out, "Logged in as %s (%s).\n", u.Username, u.Role)
	return nil
}

// Logout forgets the session locally.
func (a *App) Logout(ctx context.Context) error {
	err := a.session.Logout(ctx)
	a.resources.ClearOwned()
	a.admin.Clear()
	if err != nil {
		return a.report(ctx, "logout", err)
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// WhoAmI prints the session user.
func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.session.CurrentUser()
	if !ok {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	printUser(a.out, u)
	return nil
}

// Profile edits username, bio and avatar. Empty answers keep the current
// value.
func (a *App) Profile(ctx context.Context) error {
	u, ok := a.session.CurrentUser()
	if !ok {
		return a.report(ctx, "profile", errLoginRequired)
	}

	name, err := getSimpleText(a.reader, fmt.Sprintf("Username [%s]", u.Username), a.out)
	if err != nil {
		return err
	}
	bio, err := getSimpleText(a.reader, fmt.Sprintf("Bio [%s]", u.Bio), a.out)
	if err != nil {
		return err
	}
	avatar, err := getSimpleText(a.reader, fmt.Sprintf("Avatar URL [%s]", u.Avatar), a.out)
	if err != nil {
		return err
	}

	updated, err := a.session.UpdateProfile(ctx, models.ProfileUpdate{
		Username: optional(name),
		Bio:      optional(bio),
		Avatar:   optional(avatar),
	})
	if err != nil {
		return a.report(ctx, "profile", err)
	}
	fmt.Fprintln(a.out, "Profile updated.")
	printUser(a.out, updated)
	return nil
}
