package apiclient

import (
	"context"

	"github.com/propdesk/propdesk/internal/rbac"
)

// Guarded runs call only when checker grants op on page. A refusal is
// reported as a KindDenied result and no request is sent.
func Guarded(ctx context.Context, checker *rbac.Checker, page string, op rbac.Operation, call func(context.Context) *Result) *Result {
	action := rbac.Require(checker, page, op, func(ctx context.Context) (*Result, error) {
		return call(ctx), nil
	})
	res, err := action(ctx)
	if err != nil {
		denied := Fail(KindDenied, err)
		return &denied
	}
	return res
}
