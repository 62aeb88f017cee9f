package services

import (
	"context"
	"net/http"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// BankAccount is a payout account attached to the operator profile.
type BankAccount struct {
	ID            string `json:"_id"`
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	BranchCode    string `json:"branchCode,omitempty"`
}

// Profile is the signed-in operator's own record.
type Profile struct {
	ID           string        `json:"_id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	Image        string        `json:"image,omitempty"`
	BankAccounts []BankAccount `json:"bankAccounts,omitempty"`
}

// ProfileInput is the update body.
type ProfileInput struct {
	Name  string `json:"name" validate:"required,max=128"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// BankAccountInput is the body for adding a payout account.
type BankAccountInput struct {
	BankName      string `json:"bankName" validate:"required,max=128"`
	AccountName   string `json:"accountName" validate:"required,max=128"`
	AccountNumber string `json:"accountNumber" validate:"required,numeric,min=4,max=34"`
	BranchCode    string `json:"branchCode,omitempty" validate:"omitempty,alphanum,max=16"`
}

// ProfileService wraps /profile.
type ProfileService struct {
	base
}

// Get returns the operator profile.
func (s *ProfileService) Get(ctx context.Context) *apiclient.Result {
	return s.client.Get(ctx, "/profile")
}

// Update changes profile fields. Requires edit on profile.
func (s *ProfileService) Update(ctx context.Context, in ProfileInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageProfile, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Put(ctx, "/profile", in)
	})
}

// UploadImage replaces the avatar. Requires edit on profile.
func (s *ProfileService) UploadImage(ctx context.Context, image apiclient.FilePart) *apiclient.Result {
	if image.Content == nil {
		return invalidf("image content is required")
	}
	if image.Field == "" {
		image.Field = "image"
	}
	body := &apiclient.Multipart{Files: []apiclient.FilePart{image}}
	return s.guarded(ctx, rbac.PageProfile, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Call(ctx, http.MethodPut, "/profile/image", body)
	})
}

// AddBankAccount attaches a payout account. Requires edit on bank-account.
func (s *ProfileService) AddBankAccount(ctx context.Context, in BankAccountInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageBankAccount, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/profile/bank-account", in)
	})
}

// DeleteBankAccount detaches a payout account. Requires delete on bank-account.
func (s *ProfileService) DeleteBankAccount(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageBankAccount, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/profile/bank-account", id))
	})
}
