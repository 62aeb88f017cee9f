package services

import (
	"context"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// RentCollection records one rent instalment for a property.
type RentCollection struct {
	ID         string  `json:"_id"`
	PropertyID string  `json:"propertyId"`
	TenantName string  `json:"tenantName"`
	Amount     float64 `json:"amount"`
	DueDate    string  `json:"dueDate"`
	PaidDate   string  `json:"paidDate,omitempty"`
	Status     string  `json:"status"`
}

// RentCollectionInput is the create body.
type RentCollectionInput struct {
	PropertyID string  `json:"propertyId" validate:"required"`
	TenantName string  `json:"tenantName" validate:"required,max=128"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	DueDate    string  `json:"dueDate" validate:"required,datetime=2006-01-02"`
	PaidDate   string  `json:"paidDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status     string  `json:"status" validate:"required,oneof=pending paid partial overdue"`
}

// RentCollectionPatch carries the fields PATCH may change.
type RentCollectionPatch struct {
	Amount   *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	PaidDate *string  `json:"paidDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status   *string  `json:"status,omitempty" validate:"omitempty,oneof=pending paid partial overdue"`
}

// RentCollectionService wraps /rent-collection.
type RentCollectionService struct {
	base
}

// List returns rent records matching q.
func (s *RentCollectionService) List(ctx context.Context, q ListQuery) *apiclient.Result {
	return s.client.Get(ctx, "/rent-collection", q.options()...)
}

// Create records a collection. Requires edit on rent-collection.
func (s *RentCollectionService) Create(ctx context.Context, in RentCollectionInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageRentCollection, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/rent-collection", in)
	})
}

// Update patches a collection. Requires edit on rent-collection.
func (s *RentCollectionService) Update(ctx context.Context, id string, patch RentCollectionPatch) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	if res := invalid(patch); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageRentCollection, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Patch(ctx, resourcePath("/rent-collection", id), patch)
	})
}

// Delete removes a collection. Requires delete on rent-collection.
func (s *RentCollectionService) Delete(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageRentCollection, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/rent-collection", id))
	})
}
