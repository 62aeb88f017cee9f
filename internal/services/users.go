package services

import (
	"context"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// ManagedUser is an operator account as listed by user management.
type ManagedUser struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// UserInput is the create/update body. Password is required on create only.
type UserInput struct {
	Name     string `json:"name" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role     string `json:"role" validate:"required"`
	Active   *bool  `json:"active,omitempty"`
}

// UserService wraps /user_management.
type UserService struct {
	base
}

// List returns operator accounts matching q.
func (s *UserService) List(ctx context.Context, q ListQuery) *apiclient.Result {
	return s.client.Get(ctx, "/user_management", q.options()...)
}

// Create adds an account. Requires edit on user-management.
func (s *UserService) Create(ctx context.Context, in UserInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	if in.Password == "" {
		return invalidf("password is required for new users")
	}
	return s.guarded(ctx, rbac.PageUserManagement, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/user_management", in)
	})
}

// Update replaces an account. An empty password keeps the current one.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageUserManagement, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Put(ctx, resourcePath("/user_management", id), in)
	})
}

// Delete removes an account. Requires delete on user-management.
func (s *UserService) Delete(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageUserManagement, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/user_management", id))
	})
}
