// Package services exposes one typed wrapper per REST resource of the admin
// API. Every method returns the apiclient envelope; privileged methods run
// behind a capability check and never reach the network when it fails.
package services

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
	"github.com/propdesk/propdesk/internal/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Deps are shared by every service.
type Deps struct {
	Client   *apiclient.Client
	Checker  *rbac.Checker
	Sessions session.Provider
	Logger   *slog.Logger
}

// Services bundles the resource wrappers.
type Services struct {
	Auth            *AuthService
	Properties      *PropertyService
	RentCollections *RentCollectionService
	TenantQueries   *TenantQueryService
	Users           *UserService
	Roles           *RoleService
	Tasks           *TaskService
	Invoices        *InvoiceService
	Profile         *ProfileService
	Events          *EventService
}

// New wires every service over the same client and checker.
func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	b := base{client: d.Client, checker: d.Checker, logger: d.Logger}
	return &Services{
		Auth:            &AuthService{base: b, sessions: d.Sessions},
		Properties:      &PropertyService{base: b},
		RentCollections: &RentCollectionService{base: b},
		TenantQueries:   &TenantQueryService{base: b},
		Users:           &UserService{base: b},
		Roles:           &RoleService{base: b},
		Tasks:           &TaskService{base: b},
		Invoices:        &InvoiceService{base: b},
		Profile:         &ProfileService{base: b},
		Events:          &EventService{base: b},
	}
}

type base struct {
	client  *apiclient.Client
	checker *rbac.Checker
	logger  *slog.Logger
}

func (b base) guarded(ctx context.Context, page string, op rbac.Operation, call func(context.Context) *apiclient.Result) *apiclient.Result {
	return apiclient.Guarded(ctx, b.checker, page, op, call)
}

// invalid returns a KindValidation result when in fails its validate tags.
func invalid(in any) *apiclient.Result {
	if err := validate.Struct(in); err != nil {
		res := apiclient.Fail(apiclient.KindValidation, err)
		return &res
	}
	return nil
}

func invalidf(msg string) *apiclient.Result {
	res := apiclient.Fail(apiclient.KindValidation, validationError(msg))
	return &res
}

type validationError string

func (e validationError) Error() string { return string(e) }

// resourcePath joins a collection path and escaped id segments.
func resourcePath(collection string, segments ...string) string {
	var b strings.Builder
	b.WriteString(collection)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func requireID(id string) *apiclient.Result {
	if strings.TrimSpace(id) == "" {
		return invalidf("id is required")
	}
	return nil
}

// ListQuery carries the paging and filter parameters shared by list endpoints.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (q ListQuery) options() []apiclient.Option {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if s := strings.TrimSpace(q.Status); s != "" {
		values.Set("status", s)
	}
	if len(values) == 0 {
		return nil
	}
	return []apiclient.Option{apiclient.WithQuery(values)}
}
