package services

import (
	"context"
	"net/http"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// Property is a managed building, unit or vehicle record.
type Property struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Address     string   `json:"address,omitempty"`
	Rent        float64  `json:"rent,omitempty"`
	Status      string   `json:"status,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// PropertyInput is the create/update body.
type PropertyInput struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Type        string  `json:"type,omitempty" validate:"omitempty,max=64"`
	Address     string  `json:"address" validate:"required,max=256"`
	Rent        float64 `json:"rent" validate:"gte=0"`
	Status      string  `json:"status,omitempty" validate:"omitempty,oneof=available occupied maintenance inactive"`
	Description string  `json:"description,omitempty" validate:"max=2000"`
}

// PropertyService wraps /property.
type PropertyService struct {
	base
}

// List returns properties matching q.
func (s *PropertyService) List(ctx context.Context, q ListQuery) *apiclient.Result {
	return s.client.Get(ctx, "/property", q.options()...)
}

// Get returns one property.
func (s *PropertyService) Get(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.client.Get(ctx, resourcePath("/property", id))
}

// Create adds a property. Requires edit on property.
func (s *PropertyService) Create(ctx context.Context, in PropertyInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageProperty, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/property", in)
	})
}

// Update replaces a property. Requires edit on property.
func (s *PropertyService) Update(ctx context.Context, id string, in PropertyInput) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageProperty, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Put(ctx, resourcePath("/property", id), in)
	})
}

// Delete removes a property. Requires delete on property.
func (s *PropertyService) Delete(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageProperty, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/property", id))
	})
}

// UploadImages replaces the property's gallery with a multipart upload.
func (s *PropertyService) UploadImages(ctx context.Context, id string, images []apiclient.FilePart) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	if len(images) == 0 {
		return invalidf("at least one image is required")
	}
	body := &apiclient.Multipart{Files: make([]apiclient.FilePart, 0, len(images))}
	for _, img := range images {
		if img.Field == "" {
			img.Field = "images"
		}
		body.Files = append(body.Files, img)
	}
	return s.guarded(ctx, rbac.PageProperty, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Call(ctx, http.MethodPut, resourcePath("/property", id, "images"), body)
	})
}
