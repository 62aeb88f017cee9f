package rbac

import (
	"context"
	"log/slog"
)

// PermissionSource returns the cached permission snapshot for the current session.
type PermissionSource interface {
	Permissions(ctx context.Context) ([]Permission, error)
}

// Checker answers capability questions against a PermissionSource. It never
// touches the network and fails closed.
type Checker struct {
	Source PermissionSource
	Logger *slog.Logger
}

// NewChecker constructs a Checker.
func NewChecker(source PermissionSource, logger *slog.Logger) *Checker {
	return &Checker{Source: source, Logger: logger}
}

// Check reports whether the session may perform op on page.
func (c *Checker) Check(ctx context.Context, page string, op Operation) bool {
	if c == nil || c.Source == nil {
		return false
	}
	perms, err := c.Source.Permissions(ctx)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Debug("rbac permissions unavailable", slog.String("page", page), slog.Any("error", err))
		}
		return false
	}
	return Allowed(perms, page, op)
}

// Authorize returns a DeniedError when Check fails.
func (c *Checker) Authorize(ctx context.Context, page string, op Operation) error {
	if c.Check(ctx, page, op) {
		return nil
	}
	return &DeniedError{Page: page, Op: op}
}

// Allowed evaluates a permission slice without a Checker.
func Allowed(perms []Permission, page string, op Operation) bool {
	for _, p := range perms {
		if p.Page == page && p.Allows(op) {
			return true
		}
	}
	return false
}
