package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/propdesk/internal/rbac"
)

type staticSource struct {
	perms []rbac.Permission
	err   error
}

func (s staticSource) Permissions(context.Context) ([]rbac.Permission, error) {
	return s.perms, s.err
}

func TestCheckerMatchesPageAndOperation(t *testing.T) {
	checker := rbac.NewChecker(staticSource{perms: []rbac.Permission{
		{Page: rbac.PageProperty, Read: true, Edit: true},
		{Page: rbac.PageInvoice, Download: true},
	}}, nil)
	ctx := context.Background()

	cases := []struct {
		page string
		op   rbac.Operation
		want bool
	}{
		{rbac.PageProperty, rbac.OpRead, true},
		{rbac.PageProperty, rbac.OpEdit, true},
		{rbac.PageProperty, rbac.OpDelete, false},
		{rbac.PageInvoice, rbac.OpDownload, true},
		{rbac.PageInvoice, rbac.OpRead, false},
		{rbac.PageTasks, rbac.OpRead, false},
		{rbac.PageProperty, rbac.Operation("approve"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, checker.Check(ctx, tc.page, tc.op), "%s/%s", tc.page, tc.op)
	}
}

func TestCheckerFailsClosed(t *testing.T) {
	ctx := context.Background()

	var nilChecker *rbac.Checker
	assert.False(t, nilChecker.Check(ctx, rbac.PageProperty, rbac.OpRead))

	noSource := rbac.NewChecker(nil, nil)
	assert.False(t, noSource.Check(ctx, rbac.PageProperty, rbac.OpRead))

	empty := rbac.NewChecker(staticSource{}, nil)
	assert.False(t, empty.Check(ctx, rbac.PageProperty, rbac.OpRead))

	broken := rbac.NewChecker(staticSource{
		perms: []rbac.Permission{{Page: rbac.PageProperty, Read: true}},
		err:   errors.New("unexpected end of JSON input"),
	}, nil)
	assert.False(t, broken.Check(ctx, rbac.PageProperty, rbac.OpRead))
}

func TestRequireSkipsActionWhenDenied(t *testing.T) {
	checker := rbac.NewChecker(staticSource{perms: []rbac.Permission{{Page: rbac.PageTasks, Edit: true}}}, nil)
	calls := 0
	action := func(context.Context) (string, error) {
		calls++
		return "done", nil
	}

	out, err := rbac.Require(checker, rbac.PageTasks, rbac.OpDelete, action)(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, rbac.ErrDenied))
	assert.Equal(t, "You do not have permission to delete tasks", err.Error())
	assert.Empty(t, out)
	assert.Zero(t, calls)

	out, err = rbac.Require(checker, rbac.PageTasks, rbac.OpEdit, action)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 1, calls)
}

func TestRequireAny(t *testing.T) {
	checker := rbac.NewChecker(staticSource{perms: []rbac.Permission{{Page: rbac.PageInvoice, Download: true}}}, nil)
	action := func(context.Context) (int, error) { return 7, nil }

	v, err := rbac.RequireAny(checker, rbac.PageInvoice, []rbac.Operation{rbac.OpEdit, rbac.OpDownload}, action)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = rbac.RequireAny(checker, rbac.PageInvoice, []rbac.Operation{rbac.OpEdit, rbac.OpDelete}, action)(context.Background())
	var denied *rbac.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, rbac.OpEdit, denied.Op)
}

func TestParseOperation(t *testing.T) {
	op, err := rbac.ParseOperation(" Download ")
	require.NoError(t, err)
	assert.Equal(t, rbac.OpDownload, op)

	_, err = rbac.ParseOperation("approve")
	assert.Error(t, err)
}

func TestValidateRoleRejectsDuplicatePages(t *testing.T) {
	role := rbac.NormalizeRole(rbac.Role{
		Name: "  Leasing Agent ",
		Permissions: []rbac.Permission{
			{Page: "Property", Read: true},
			{Page: " property ", Edit: true},
			{Page: "  "},
		},
	})
	assert.Equal(t, "Leasing Agent", role.Name)
	require.Len(t, role.Permissions, 2)

	err := rbac.ValidateRole(role)
	require.Error(t, err)
	assert.ErrorIs(t, err, rbac.ErrDuplicatePage)
}

func TestValidateRoleRequiresName(t *testing.T) {
	err := rbac.ValidateRole(rbac.Role{Permissions: []rbac.Permission{{Page: rbac.PageTasks}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")

	require.NoError(t, rbac.ValidateRole(rbac.Role{Name: "viewer", Permissions: []rbac.Permission{{Page: rbac.PageTasks, Read: true}}}))
}

func TestMatrixSortsByPage(t *testing.T) {
	rows := rbac.Matrix([]rbac.Permission{
		{Page: rbac.PageTasks, Read: true},
		{Page: rbac.PageInvoice, Download: true},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, rbac.PageInvoice, rows[0].Page)
	assert.True(t, rows[0].Flags[rbac.OpDownload])
	assert.False(t, rows[0].Flags[rbac.OpRead])
	assert.True(t, rows[1].Flags[rbac.OpRead])
}
