package services

import (
	"context"
	"net/http"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// InvoiceItem is one billed line.
type InvoiceItem struct {
	Description string  `json:"description" validate:"required,max=256"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
}

// Invoice is a billed document.
type Invoice struct {
	ID            string        `json:"_id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	CustomerName  string        `json:"customerName"`
	PropertyID    string        `json:"propertyId,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	IssuedAt      string        `json:"issuedAt,omitempty"`
	DueAt         string        `json:"dueAt,omitempty"`
	Items         []InvoiceItem `json:"items"`
	PDFURL        string        `json:"pdfUrl,omitempty"`
}

// Total sums the invoice lines.
func (i Invoice) Total() float64 {
	var sum float64
	for _, item := range i.Items {
		sum += item.Quantity * item.Rate
	}
	return sum
}

// InvoiceInput is the create body.
type InvoiceInput struct {
	CustomerName    string        `json:"customerName" validate:"required,max=128"`
	CustomerAddress string        `json:"customerAddress,omitempty" validate:"max=256"`
	PropertyID      string        `json:"propertyId,omitempty"`
	Currency        string        `json:"currency,omitempty" validate:"omitempty,iso4217"`
	IssuedAt        string        `json:"issuedAt" validate:"required,datetime=2006-01-02"`
	DueAt           string        `json:"dueAt,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Items           []InvoiceItem `json:"items" validate:"required,min=1,dive"`
}

// InvoicePDF is the reply of the PDF endpoint.
type InvoicePDF struct {
	URL string `json:"url"`
}

// InvoiceService wraps /invoice.
type InvoiceService struct {
	base
}

// List returns invoices matching q.
func (s *InvoiceService) List(ctx context.Context, q ListQuery) *apiclient.Result {
	return s.client.Get(ctx, "/invoice", q.options()...)
}

// Get returns one invoice.
func (s *InvoiceService) Get(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.client.Get(ctx, resourcePath("/invoice", id))
}

// Create issues an invoice. Requires edit on invoice.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageInvoice, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/invoice", in)
	})
}

// GeneratePDF asks the server to render the invoice and returns {url}.
// Requires download on invoice.
func (s *InvoiceService) GeneratePDF(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageInvoice, rbac.OpDownload, func(ctx context.Context) *apiclient.Result {
		return s.client.Call(ctx, http.MethodPost, resourcePath("/invoice", id, "pdf"), nil)
	})
}
