package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/propdesk/propdesk/internal/rbac"
	"github.com/propdesk/propdesk/internal/services"
	"github.com/propdesk/propdesk/internal/session"
)

func (a *App) login(ctx context.Context, args []string) int {
	fs := a.flagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if code, ok := a.parse(fs, args); !ok {
		return code
	}
	if *passwordStdin {
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && line == "" {
			return a.fail("login", fmt.Errorf("read password: %w", err))
		}
		*password = strings.TrimRight(line, "\r\n")
	}
	res := a.svc.Auth.Login(ctx, services.Credentials{Email: strings.TrimSpace(*email), Password: *password})
	return a.emit("login", res)
}

func (a *App) logout(ctx context.Context, _ []string) int {
	if err := a.svc.Auth.Logout(ctx); err != nil {
		return a.fail("logout", err)
	}
	_, _ = fmt.Fprintln(a.stdout, "logged out")
	return ExitOK
}

type whoamiOutput struct {
	User        session.User `json:"user"`
	Permissions int          `json:"permissions"`
	Warning     string       `json:"warning,omitempty"`
}

func (a *App) whoami(ctx context.Context, _ []string) int {
	sess, err := a.svc.Auth.Current(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			_, _ = fmt.Fprintln(a.stderr, "not logged in, run propdesk login")
			return ExitSessionEnd
		}
		return a.fail("whoami", err)
	}
	out := whoamiOutput{User: sess.User, Permissions: len(sess.Permissions)}
	out.User.AccessToken = ""
	if sess.PermissionsErr != nil {
		out.Warning = "cached permissions are unreadable"
	}
	return a.encode("whoami", out)
}

func (a *App) can(ctx context.Context, args []string) int {
	if len(args) != 2 {
		return a.usageError("can", "usage: propdesk can PAGE OPERATION")
	}
	op, err := rbac.ParseOperation(args[1])
	if err != nil {
		return a.usageError("can", "%v", err)
	}
	if !a.checker.Check(ctx, args[0], op) {
		_, _ = fmt.Fprintf(a.stdout, "denied: %s %s\n", op, args[0])
		return ExitDenied
	}
	_, _ = fmt.Fprintf(a.stdout, "allowed: %s %s\n", op, args[0])
	return ExitOK
}

func (a *App) matrix(ctx context.Context, _ []string) int {
	sess, err := a.svc.Auth.Current(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			_, _ = fmt.Fprintln(a.stderr, "not logged in, run propdesk login")
			return ExitSessionEnd
		}
		return a.fail("matrix", err)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	header := []string{"PAGE"}
	for _, op := range rbac.Operations {
		header = append(header, strings.ToUpper(string(op)))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rbac.Matrix(sess.Permissions) {
		cells := []string{row.Page}
		for _, op := range rbac.Operations {
			mark := "-"
			if row.Flags[op] {
				mark = "x"
			}
			cells = append(cells, mark)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return a.fail("matrix", err)
	}
	return ExitOK
}
