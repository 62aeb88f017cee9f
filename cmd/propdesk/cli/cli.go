// Package cli implements the propdesk operator commands. Every command writes
// its payload to Stdout, diagnostics to Stderr, and returns a process exit
// code.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
	"github.com/propdesk/propdesk/internal/services"
)

// Exit codes shared by all commands.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitDenied     = 3
	ExitSessionEnd = 4
)

// SessionExpiredMessage is printed when the session guard ends the session.
const SessionExpiredMessage = "session expired, run propdesk login"

// Deps are the collaborators of an App.
type Deps struct {
	Services *services.Services
	Checker  *rbac.Checker
	Jobs     JobQueue
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
}

// App dispatches command lines.
type App struct {
	svc     *services.Services
	checker *rbac.Checker
	jobs    JobQueue
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
}

// NewApp builds an App. Nil writers fall back to the process streams.
func NewApp(d Deps) *App {
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	return &App{svc: d.Services, checker: d.Checker, jobs: d.Jobs, stdout: d.Stdout, stderr: d.Stderr, stdin: d.Stdin}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) int
}

func (a *App) commands() []command {
	return []command{
		{"login", "log in and cache the session", a.login},
		{"logout", "drop the cached session", a.logout},
		{"whoami", "show the cached user", a.whoami},
		{"can", "check a capability: can PAGE OPERATION", a.can},
		{"matrix", "print the cached permission matrix", a.matrix},
		{"property", "properties: list|get|create|update|delete|images", a.property},
		{"rent", "rent collections: list|create|update|delete", a.rent},
		{"tenantq", "tenant queries: list|create|update|delete", a.tenantQueries},
		{"users", "user management: list|create|update|delete", a.users},
		{"roles", "roles: list|get|create|delete", a.roles},
		{"tasks", "task board: list|board|create|update|move|delete", a.tasks},
		{"invoice", "invoices: list|get|create|pdf", a.invoices},
		{"profile", "profile: get|update|image|bank-add|bank-delete", a.profile},
		{"events", "follow the live event feed", a.events},
		{"jobs", "pdf queue: stats|render|sweep", a.jobsCommand},
	}
}

// Run executes args (without the program name).
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(a.stdout)
		return ExitOK
	}
	for _, cmd := range a.commands() {
		if cmd.name == args[0] {
			return cmd.run(ctx, args[1:])
		}
	}
	_, _ = fmt.Fprintf(a.stderr, "propdesk: unknown command %q\n", args[0])
	a.usage(a.stderr)
	return ExitUsage
}

func (a *App) usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: propdesk <command> [arguments]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, cmd := range a.commands() {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
}

func (a *App) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse reports ExitOK with ok=false for --help so callers can return early.
func (a *App) parse(fs *pflag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK, false
		}
		return ExitUsage, false
	}
	return ExitOK, true
}

func (a *App) usageError(cmd, format string, args ...any) int {
	_, _ = fmt.Fprintf(a.stderr, "propdesk %s: %s\n", cmd, fmt.Sprintf(format, args...))
	return ExitUsage
}

func (a *App) fail(cmd string, err error) int {
	_, _ = fmt.Fprintf(a.stderr, "propdesk %s: %v\n", cmd, err)
	if errors.Is(err, rbac.ErrDenied) {
		return ExitDenied
	}
	return ExitFailure
}

// emit prints a successful payload or the failure message of res. A nil res
// means the guard already ended the session.
func (a *App) emit(cmd string, res *apiclient.Result) int {
	if res == nil {
		return ExitSessionEnd
	}
	if res.Err != nil {
		_, _ = fmt.Fprintf(a.stderr, "propdesk %s: %s\n", cmd, res.Err.Message)
		switch res.Err.Kind {
		case apiclient.KindDenied:
			return ExitDenied
		case apiclient.KindValidation:
			return ExitUsage
		}
		return ExitFailure
	}
	return a.printJSON(cmd, res.Data)
}

func (a *App) printJSON(cmd string, raw json.RawMessage) int {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	if _, err := a.stdout.Write(buf.Bytes()); err != nil {
		return a.fail(cmd, err)
	}
	return ExitOK
}

func (a *App) encode(cmd string, v any) int {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return a.fail(cmd, fmt.Errorf("encode json: %w", err))
	}
	return ExitOK
}

// readData resolves a --data value: inline JSON, @path, or - for stdin.
func (a *App) readData(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return nil, errors.New("--data is required")
	case value == "-":
		return io.ReadAll(a.stdin)
	case strings.HasPrefix(value, "@"):
		return os.ReadFile(strings.TrimPrefix(value, "@"))
	}
	return []byte(value), nil
}

func decodeInput[T any](raw []byte) (T, error) {
	var in T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("invalid --data: %w", err)
	}
	return in, nil
}
