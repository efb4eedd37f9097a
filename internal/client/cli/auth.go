package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var (
	errNotLoggedIn = errors.New("not logged in")
	errNotAdmin    = errors.New("admin role required")
)

// Login authenticates against the CMS. The identifier may be given as the
// first argument; otherwise it is prompted for. The password is always read
// without echo and wiped after use.
func (a *App) Login(ctx context.Context, args []string) error {
	identifier := ""
	if len(args) > 0 {
		identifier = args[0]
	} else {
		var err error
		identifier, err = getSimpleText(a.reader, "Enter email or username", a.out)
		if err != nil {
			return err
		}
	}
	if identifier == "" {
		return fmt.Errorf("identifier must not be empty")
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.auth.Login(ctx, identifier, string(password))
	if err != nil {
		a.log.Info(ctx, "login failed", "identifier", identifier, "error", err)
		return err
	}

	a.printf("Logged in as %s (%s)\n", s.User.Username, roleName(s))
	if !a.auth.IsAdmin(s) {
		fmt.Fprintln(a.out, "Note: this account cannot use admin commands")
	}
	return nil
}

// Logout removes the stored session and every cached read.
func (a *App) Logout(ctx context.Context, _ []string) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// WhoAmI prints the stored user, its role and admin status.
func (a *App) WhoAmI(ctx context.Context, _ []string) error {
	s := a.auth.CurrentSession(ctx)
	if !s.Authenticated() {
		return errNotLoggedIn
	}
	u := s.User
	a.printf("user:  %s\n", u.Username)
	a.printf("email: %s\n", u.Email)
	a.printf("id:    %s\n", u.ID)
	a.printf("role:  %s\n", roleName(s))
	a.printf("admin: %t\n", a.auth.IsAdmin(s))
	return nil
}

func (a *App) requireAdmin(ctx context.Context) error {
	s := a.auth.CurrentSession(ctx)
	if !s.Authenticated() {
		return errNotLoggedIn
	}
	if !a.auth.IsAdmin(s) {
		return errNotAdmin
	}
	return nil
}

func roleName(s models.Session) string {
	if s.User == nil || s.User.Role == nil {
		return "no role"
	}
	if s.User.Role.Name != "" {
		return s.User.Role.Name
	}
	return s.User.Role.Type
}
