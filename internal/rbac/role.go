package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrDuplicatePage is returned when a role carries two entries for one page.
var ErrDuplicatePage = errors.New("rbac: duplicate page permission")

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeRole trims the role name and lowercases page identifiers, dropping
// entries without a page.
func NormalizeRole(role Role) Role {
	role.Name = strings.TrimSpace(role.Name)
	role.Description = strings.TrimSpace(role.Description)
	perms := make([]Permission, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		p.Page = strings.ToLower(strings.TrimSpace(p.Page))
		if p.Page == "" {
			continue
		}
		perms = append(perms, p)
	}
	role.Permissions = perms
	return role
}

// ValidateRole checks field constraints and the one-entry-per-page invariant.
func ValidateRole(role Role) error {
	if err := validate.Struct(role); err != nil {
		return fmt.Errorf("rbac: invalid role: %w", err)
	}
	seen := make(map[string]struct{}, len(role.Permissions))
	for _, p := range role.Permissions {
		if _, ok := seen[p.Page]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePage, p.Page)
		}
		seen[p.Page] = struct{}{}
	}
	return nil
}

// MatrixRow is one page line of a capability grid.
type MatrixRow struct {
	Page  string
	Flags map[Operation]bool
}

// Matrix renders permissions as a page-sorted grid.
func Matrix(perms []Permission) []MatrixRow {
	rows := make([]MatrixRow, 0, len(perms))
	for _, p := range perms {
		flags := make(map[Operation]bool, len(Operations))
		for _, op := range Operations {
			flags[op] = p.Allows(op)
		}
		rows = append(rows, MatrixRow{Page: p.Page, Flags: flags})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Page < rows[j].Page })
	return rows
}
