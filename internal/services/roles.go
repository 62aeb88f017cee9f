package services

import (
	"context"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// RoleService wraps /role.
type RoleService struct {
	base
}

// List returns every role.
func (s *RoleService) List(ctx context.Context) *apiclient.Result {
	return s.client.Get(ctx, "/role")
}

// Get returns one role with its permissions.
func (s *RoleService) Get(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.client.Get(ctx, resourcePath("/role", id))
}

// Create normalises and validates role before posting it, so a role with two
// entries for one page never reaches the server. Requires edit on role.
func (s *RoleService) Create(ctx context.Context, role rbac.Role) *apiclient.Result {
	role = rbac.NormalizeRole(role)
	if err := rbac.ValidateRole(role); err != nil {
		res := apiclient.Fail(apiclient.KindValidation, err)
		return &res
	}
	role.ID = ""
	return s.guarded(ctx, rbac.PageRole, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/role", role)
	})
}

// Delete removes a role. Requires delete on role.
func (s *RoleService) Delete(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageRole, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/role", id))
	})
}
