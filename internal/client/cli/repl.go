package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
)

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	isAdmin(ctx context.Context) bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Create(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: login, list, show, refresh, help, exit"
	helpUser      = "Available commands: whoami, list, show, refresh, logout, help, exit"
	helpAdmin     = "Available commands: whoami, (l)ist, show, create, update, delete, upload, refresh, logout, help, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
// Commands
//
//	login [identifier]            authenticate against the CMS
//	logout                        drop the stored session
//	whoami                        show the current user and role
//	list <kind> [field=value...]  list records of a kind
//	show <kind> <id>              show a single record
//	create <kind>                 create a record from JSON attributes (admin)
//	update <kind> <id>            update a record from JSON attributes (admin)
//	delete <kind> <id>            delete a record (admin)
//	upload <path>                 upload a media file (admin)
//	refresh [kind]                drop cached reads
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "cms%s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			switch {
			case a.isAdmin(ctx):
				fmt.Fprintln(w, helpAdmin)
			case a.isLoggedIn(ctx):
				fmt.Fprintln(w, helpUser)
			default:
				fmt.Fprintln(w, helpAnonymous)
			}
		case "login":
			cmdErr = a.Login(ctx, args)
		case "logout":
			cmdErr = a.Logout(ctx, args)
		case "whoami":
			cmdErr = a.WhoAmI(ctx, args)
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "create":
			cmdErr = a.Create(ctx, args)
		case "update":
			cmdErr = a.Update(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "upload":
			cmdErr = a.Upload(ctx, args)
		case "refresh":
			cmdErr = a.Refresh(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "error:", describe(cmdErr))
		}
		if err != nil {
			return
		}
	}
}

// describe renders CMS failures with their status and name so an operator
// can tell an expired session from a validation problem.
func describe(err error) string {
	var e *client.CMSError
	if errors.As(err, &e) {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Name)
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return err.Error()
}

func (a *App) getStatus() string {
	s := a.auth.CurrentSession(context.Background())
	if !s.Authenticated() {
		return ""
	}
	status := s.User.Username
	if a.auth.IsAdmin(s) {
		status += " admin"
	}
	return fmt.Sprintf(" (%s)", status)
}

// Root prints the greeting and runs the REPL on the App's input.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Flight school CMS back-office (type 'help' for commands)")
	if s := a.auth.CurrentSession(ctx); s.Authenticated() {
		a.printf("Resumed session of %s\n", s.User.Username)
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
