package rbac

import (
	"fmt"
	"strings"
)

// Operation is a capability flag carried by a Permission.
type Operation string

const (
	OpRead     Operation = "read"
	OpEdit     Operation = "edit"
	OpDelete   Operation = "delete"
	OpDownload Operation = "download"
)

// Operations lists every operation in display order.
var Operations = []Operation{OpRead, OpEdit, OpDelete, OpDownload}

// ParseOperation converts user input into an Operation.
func ParseOperation(raw string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(raw)))
	switch op {
	case OpRead, OpEdit, OpDelete, OpDownload:
		return op, nil
	}
	return "", fmt.Errorf("rbac: unknown operation %q", raw)
}

// Page identifiers used by the panel.
const (
	PageProperty       = "property"
	PageRentCollection = "rent-collection"
	PageTenantQuery    = "tenantq"
	PageUserManagement = "user-management"
	PageRole           = "role"
	PageTasks          = "tasks"
	PageInvoice        = "invoice"
	PageProfile        = "profile"
	PageBankAccount    = "bank-account"
)

// Pages lists the known page identifiers.
var Pages = []string{
	PageProperty,
	PageRentCollection,
	PageTenantQuery,
	PageUserManagement,
	PageRole,
	PageTasks,
	PageInvoice,
	PageProfile,
	PageBankAccount,
}

// Permission grants operations on a single page.
type Permission struct {
	Page     string `json:"page" validate:"required"`
	Read     bool   `json:"read"`
	Edit     bool   `json:"edit"`
	Delete   bool   `json:"delete"`
	Download bool   `json:"download"`
}

// Allows reports whether the permission carries the operation flag.
func (p Permission) Allows(op Operation) bool {
	switch op {
	case OpRead:
		return p.Read
	case OpEdit:
		return p.Edit
	case OpDelete:
		return p.Delete
	case OpDownload:
		return p.Download
	}
	return false
}

// Role owns at most one Permission per page.
type Role struct {
	ID          string       `json:"_id,omitempty"`
	Name        string       `json:"name" validate:"required,max=64"`
	Description string       `json:"description,omitempty" validate:"max=256"`
	Permissions []Permission `json:"permissions" validate:"dive"`
}
