package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrDenied is matched by every DeniedError.
var ErrDenied = errors.New("rbac: permission denied")

// DeniedError describes a refused capability.
type DeniedError struct {
	Page string
	Op   Operation
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("You do not have permission to %s %s", e.Op, e.Page)
}

// Is makes errors.Is(err, ErrDenied) succeed.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// Action is a privileged operation.
type Action[T any] func(ctx context.Context) (T, error)

// Require wraps action so that it only runs when the checker grants op on
// page. A denied call returns the zero value and a *DeniedError without
// invoking action.
func Require[T any](checker *Checker, page string, op Operation, action Action[T]) Action[T] {
	return func(ctx context.Context) (T, error) {
		if err := checker.Authorize(ctx, page, op); err != nil {
			var zero T
			if checker != nil && checker.Logger != nil {
				checker.Logger.Info("rbac denied", slog.String("page", page), slog.String("op", string(op)))
			}
			return zero, err
		}
		return action(ctx)
	}
}

// RequireAny runs action when at least one of the operations is granted.
func RequireAny[T any](checker *Checker, page string, ops []Operation, action Action[T]) Action[T] {
	return func(ctx context.Context) (T, error) {
		for _, op := range ops {
			if checker.Check(ctx, page, op) {
				return action(ctx)
			}
		}
		var zero T
		op := OpRead
		if len(ops) > 0 {
			op = ops[0]
		}
		return zero, &DeniedError{Page: page, Op: op}
	}
}
