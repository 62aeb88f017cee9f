package services

import (
	"context"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// TenantQuery is an enquiry raised by a tenant or prospect.
type TenantQuery struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

// TenantQueryInput is the create body.
type TenantQueryInput struct {
	Name       string `json:"name" validate:"required,max=128"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=32"`
	PropertyID string `json:"propertyId,omitempty"`
	Message    string `json:"message" validate:"required,max=4000"`
}

// TenantQueryPatch updates the handling state of a query.
type TenantQueryPatch struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	Note   string `json:"note,omitempty" validate:"max=2000"`
}

// TenantQueryService wraps /tenantq.
type TenantQueryService struct {
	base
}

// List returns tenant queries matching q.
func (s *TenantQueryService) List(ctx context.Context, q ListQuery) *apiclient.Result {
	return s.client.Get(ctx, "/tenantq", q.options()...)
}

// Create files a query. Requires edit on tenantq.
func (s *TenantQueryService) Create(ctx context.Context, in TenantQueryInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTenantQuery, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/tenantq", in)
	})
}

// Update patches a query. Requires edit on tenantq.
func (s *TenantQueryService) Update(ctx context.Context, id string, patch TenantQueryPatch) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	if res := invalid(patch); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTenantQuery, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Patch(ctx, resourcePath("/tenantq", id), patch)
	})
}

// Delete removes a query. Requires delete on tenantq.
func (s *TenantQueryService) Delete(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTenantQuery, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/tenantq", id))
	})
}
