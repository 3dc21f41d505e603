package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/electica/internal/client/guard"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/shared"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errAborted = errors.New("aborted")

// Signup prompts for a username, email and password and creates the account.
// It does not log in.
func (a *App) Signup(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	in := models.SignupInput{Username: username, Email: email, Password: string(password)}
	if err := a.sessions.Signup(ctx, in); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Account created, you can log in now.")
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, "Already logged in as", a.getStatus())
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	if err := a.sessions.Login(ctx, email, string(password)); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Welcome,", a.getStatus())
	if a.pending != "" {
		fmt.Fprintln(a.out, "Returning to", guard.ReturnTo(a.bounced))
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.pending = ""
	a.bounced = guard.Decision{}
	a.sessions.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	if !a.admit(ctx, "/profile", "whoami") {
		return nil
	}
	p := a.sessions.Snapshot().Profile
	fmt.Fprintf(a.out, "%s <%s> (id %d)\n", p.Username, p.Email, p.ID)
	return nil
}

// Profile edits the username and email. Empty answers keep the current
// value.
func (a *App) Profile(ctx context.Context) error {
	if !a.admit(ctx, "/profile", "profile") {
		return nil
	}
	cur := a.sessions.Snapshot().Profile

	username, err := getSimpleText(a.reader, fmt.Sprintf("Username [%s]", cur.Username), a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, fmt.Sprintf("Email [%s]", cur.Email), a.out)
	if err != nil {
		return err
	}

	var patch models.ProfilePatch
	if username != "" && username != cur.Username {
		patch.Username = &username
	}
	if email != "" && email != cur.Email {
		patch.Email = &email
	}
	if patch.Empty() {
		fmt.Fprintln(a.out, "Nothing changed.")
		return nil
	}

	updated, err := a.profile.Save(ctx, patch)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Profile saved: %s <%s>\n", updated.Username, updated.Email)
	return nil
}
