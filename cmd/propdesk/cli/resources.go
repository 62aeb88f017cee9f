package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
	"github.com/propdesk/propdesk/internal/services"
)

type invocation struct {
	args  []string
	data  []byte
	query services.ListQuery
}

// action is one resource sub-command. args is the exact positional count,
// or -1 for "one or more".
type action struct {
	name  string
	usage string
	args  int
	data  bool
	list  bool
	run   func(ctx context.Context, in invocation) *apiclient.Result
}

func (a *App) resource(ctx context.Context, cmd string, actions []action, args []string) int {
	if len(args) == 0 {
		return a.resourceUsage(cmd, actions)
	}
	var act *action
	for i := range actions {
		if actions[i].name == args[0] {
			act = &actions[i]
			break
		}
	}
	if act == nil {
		_, _ = fmt.Fprintf(a.stderr, "propdesk %s: unknown action %q\n", cmd, args[0])
		return a.resourceUsage(cmd, actions)
	}
	name := cmd + " " + act.name
	fs := a.flagSet(name)
	var data string
	if act.data {
		fs.StringVar(&data, "data", "", "request body as JSON, @file or - for stdin")
	}
	var q services.ListQuery
	if act.list {
		addListFlags(fs, &q)
	}
	if code, ok := a.parse(fs, args[1:]); !ok {
		return code
	}
	pos := fs.Args()
	switch {
	case act.args >= 0 && len(pos) != act.args:
		return a.usageError(name, "usage: propdesk %s %s", name, act.usage)
	case act.args < 0 && len(pos) == 0:
		return a.usageError(name, "usage: propdesk %s %s", name, act.usage)
	}
	in := invocation{args: pos, query: q}
	if act.data {
		raw, err := a.readData(data)
		if err != nil {
			return a.usageError(name, "%v", err)
		}
		in.data = raw
	}
	return a.emit(name, act.run(ctx, in))
}

func (a *App) resourceUsage(cmd string, actions []action) int {
	_, _ = fmt.Fprintf(a.stderr, "Usage: propdesk %s <action>\n", cmd)
	for _, act := range actions {
		_, _ = fmt.Fprintf(a.stderr, "  %s %s\n", act.name, act.usage)
	}
	return ExitUsage
}

func addListFlags(fs *pflag.FlagSet, q *services.ListQuery) {
	fs.IntVar(&q.Page, "page", 0, "page number")
	fs.IntVar(&q.Limit, "limit", 0, "page size")
	fs.StringVar(&q.Search, "search", "", "free text filter")
	fs.StringVar(&q.Status, "status", "", "status filter")
}

// withInput decodes the --data body into T before handing it to call. A
// malformed body never reaches the network.
func withInput[T any](raw []byte, call func(T) *apiclient.Result) *apiclient.Result {
	in, err := decodeInput[T](raw)
	if err != nil {
		res := apiclient.Fail(apiclient.KindValidation, err)
		return &res
	}
	return call(in)
}

// openParts opens files as multipart parts. The returned func closes them.
func openParts(field string, paths []string) ([]apiclient.FilePart, func(), error) {
	parts := make([]apiclient.FilePart, 0, len(paths))
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		parts = append(parts, apiclient.FilePart{
			Field:       field,
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p))),
			Content:     f,
		})
	}
	return parts, closeAll, nil
}

func uploadFiles(field string, paths []string, call func([]apiclient.FilePart) *apiclient.Result) *apiclient.Result {
	parts, closeAll, err := openParts(field, paths)
	if err != nil {
		res := apiclient.Fail(apiclient.KindValidation, err)
		return &res
	}
	defer closeAll()
	return call(parts)
}

func (a *App) property(ctx context.Context, args []string) int {
	svc := a.svc.Properties
	return a.resource(ctx, "property", []action{
		{name: "list", usage: "[--page N] [--limit N] [--search S] [--status S]", list: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx, in.query)
			}},
		{name: "get", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Get(ctx, in.args[0])
			}},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.PropertyInput) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "update", usage: "ID --data JSON", args: 1, data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.PropertyInput) *apiclient.Result {
					return svc.Update(ctx, in.args[0], body)
				})
			}},
		{name: "delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Delete(ctx, in.args[0])
			}},
		{name: "images", usage: "ID FILE...", args: -1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				if len(in.args) < 2 {
					res := apiclient.Fail(apiclient.KindValidation, fmt.Errorf("at least one image file is required"))
					return &res
				}
				return uploadFiles("images", in.args[1:], func(parts []apiclient.FilePart) *apiclient.Result {
					return svc.UploadImages(ctx, in.args[0], parts)
				})
			}},
	}, args)
}

func (a *App) rent(ctx context.Context, args []string) int {
	svc := a.svc.RentCollections
	return a.resource(ctx, "rent", []action{
		{name: "list", usage: "[--page N] [--limit N] [--search S] [--status S]", list: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx, in.query)
			}},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.RentCollectionInput) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "update", usage: "ID --data JSON", args: 1, data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.RentCollectionPatch) *apiclient.Result {
					return svc.Update(ctx, in.args[0], body)
				})
			}},
		{name: "delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Delete(ctx, in.args[0])
			}},
	}, args)
}

func (a *App) tenantQueries(ctx context.Context, args []string) int {
	svc := a.svc.TenantQueries
	return a.resource(ctx, "tenantq", []action{
		{name: "list", usage: "[--page N] [--limit N] [--search S] [--status S]", list: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx, in.query)
			}},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.TenantQueryInput) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "update", usage: "ID --data JSON", args: 1, data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.TenantQueryPatch) *apiclient.Result {
					return svc.Update(ctx, in.args[0], body)
				})
			}},
		{name: "delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Delete(ctx, in.args[0])
			}},
	}, args)
}

func (a *App) users(ctx context.Context, args []string) int {
	svc := a.svc.Users
	return a.resource(ctx, "users", []action{
		{name: "list", usage: "[--page N] [--limit N] [--search S] [--status S]", list: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx, in.query)
			}},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.UserInput) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "update", usage: "ID --data JSON", args: 1, data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.UserInput) *apiclient.Result {
					return svc.Update(ctx, in.args[0], body)
				})
			}},
		{name: "delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Delete(ctx, in.args[0])
			}},
	}, args)
}

func (a *App) roles(ctx context.Context, args []string) int {
	svc := a.svc.Roles
	return a.resource(ctx, "roles", []action{
		{name: "list",
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx)
			}},
		{name: "get", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Get(ctx, in.args[0])
			}},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body rbac.Role) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Delete(ctx, in.args[0])
			}},
	}, args)
}

func (a *App) tasks(ctx context.Context, args []string) int {
	svc := a.svc.Tasks
	if len(args) > 0 && args[0] == "board" {
		return a.taskBoard(ctx, args[1:])
	}
	return a.resource(ctx, "tasks", []action{
		{name: "list", usage: "[--page N] [--limit N] [--search S] [--status S]", list: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx, in.query)
			}},
		{name: "board", usage: "[--search S]"},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.TaskInput) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "update", usage: "ID --data JSON", args: 1, data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.TaskInput) *apiclient.Result {
					return svc.Update(ctx, in.args[0], body)
				})
			}},
		{name: "move", usage: "ID " + strings.Join(services.TaskStatuses, "|"), args: 2,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Move(ctx, in.args[0], in.args[1])
			}},
		{name: "delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Delete(ctx, in.args[0])
			}},
	}, args)
}

// taskBoard prints the task list grouped into kanban columns.
func (a *App) taskBoard(ctx context.Context, args []string) int {
	fs := a.flagSet("tasks board")
	var q services.ListQuery
	fs.StringVar(&q.Search, "search", "", "free text filter")
	if code, ok := a.parse(fs, args); !ok {
		return code
	}
	res := a.svc.Tasks.List(ctx, q)
	if res == nil || res.Err != nil {
		return a.emit("tasks board", res)
	}
	list, err := apiclient.DecodeField[[]services.Task](res, "data")
	if err != nil {
		return a.fail("tasks board", err)
	}
	board := services.GroupByStatus(list)
	for _, status := range services.TaskStatuses {
		_, _ = fmt.Fprintf(a.stdout, "== %s (%d)\n", status, len(board[status]))
		for _, t := range board[status] {
			line := fmt.Sprintf("  %s  %s", t.ID, t.Title)
			if t.DueDate != "" {
				line += "  due " + t.DueDate
			}
			_, _ = fmt.Fprintln(a.stdout, line)
		}
	}
	return ExitOK
}

func (a *App) invoices(ctx context.Context, args []string) int {
	svc := a.svc.Invoices
	return a.resource(ctx, "invoice", []action{
		{name: "list", usage: "[--page N] [--limit N] [--search S] [--status S]", list: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.List(ctx, in.query)
			}},
		{name: "get", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Get(ctx, in.args[0])
			}},
		{name: "create", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.InvoiceInput) *apiclient.Result {
					return svc.Create(ctx, body)
				})
			}},
		{name: "pdf", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.GeneratePDF(ctx, in.args[0])
			}},
	}, args)
}

func (a *App) profile(ctx context.Context, args []string) int {
	svc := a.svc.Profile
	return a.resource(ctx, "profile", []action{
		{name: "get",
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.Get(ctx)
			}},
		{name: "update", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.ProfileInput) *apiclient.Result {
					return svc.Update(ctx, body)
				})
			}},
		{name: "image", usage: "FILE", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return uploadFiles("image", in.args, func(parts []apiclient.FilePart) *apiclient.Result {
					return svc.UploadImage(ctx, parts[0])
				})
			}},
		{name: "bank-add", usage: "--data JSON", data: true,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return withInput(in.data, func(body services.BankAccountInput) *apiclient.Result {
					return svc.AddBankAccount(ctx, body)
				})
			}},
		{name: "bank-delete", usage: "ID", args: 1,
			run: func(ctx context.Context, in invocation) *apiclient.Result {
				return svc.DeleteBankAccount(ctx, in.args[0])
			}},
	}, args)
}
