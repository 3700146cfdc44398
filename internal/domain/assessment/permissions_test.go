package assessment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfreview/internal/domain/auth"
	"perfreview/internal/domain/directory"
)

func TestResolveWrite(t *testing.T) {
	target := directory.Employee{ID: "T", ImmediateLeader: "L", DirectJudgeID: "J"}

	tests := []struct {
		name   string
		caller auth.Identity
		want   WritePermissions
	}{
		{name: "super admin", caller: auth.Identity{EmployeeID: "X", IsSA: true}, want: WritePermissions{true, true, true}},
		{name: "leader of target", caller: auth.Identity{EmployeeID: "L", IsRJ: true}, want: WritePermissions{Competency: true}},
		{name: "leader without flag", caller: auth.Identity{EmployeeID: "L"}, want: WritePermissions{}},
		{name: "flagged leader of someone else", caller: auth.Identity{EmployeeID: "Q", IsRJ: true}, want: WritePermissions{}},
		{name: "judge of target", caller: auth.Identity{EmployeeID: "J", IsPJ: true}, want: WritePermissions{Product: true}},
		{name: "judge flag as leader", caller: auth.Identity{EmployeeID: "L", IsPJ: true}, want: WritePermissions{}},
		{name: "both roles", caller: auth.Identity{EmployeeID: "L", IsRJ: true, IsPJ: true}, want: WritePermissions{Competency: true}},
		{name: "nobody", caller: auth.Identity{EmployeeID: "Z"}, want: WritePermissions{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveWrite(tc.caller, target))
		})
	}
}

func TestResolveWriteIgnoresEmptyPointers(t *testing.T) {
	orphan := directory.Employee{ID: "T"}
	got := ResolveWrite(auth.Identity{EmployeeID: "", IsRJ: true, IsPJ: true}, orphan)
	assert.False(t, got.Any())
}

func TestAuthorizeNamesEveryDeniedCategory(t *testing.T) {
	product := 20.0
	sub := Submission{
		Competency: &CompetencySubmission{General: []LineItem{{Name: "teamwork", Score: 10}}},
		Product:    &product,
		Bonus:      &BonusSubmission{Score: 2},
	}

	err := WritePermissions{Product: true}.Authorize(sub)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))

	var authErr *AuthorizationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, []Category{CategoryCompetency, CategoryBonus}, authErr.Categories)

	assert.NoError(t, WritePermissions{true, true, true}.Authorize(sub))
	assert.NoError(t, WritePermissions{}.Authorize(Submission{}))
}

func TestResolveView(t *testing.T) {
	target := directory.Employee{ID: "T", ImmediateLeader: "L", DirectJudgeID: "J"}

	tests := []struct {
		name   string
		caller auth.Identity
		want   ViewPermission
	}{
		{name: "admin", caller: auth.Identity{EmployeeID: "X", IsSA: true}, want: ViewPermission{true, PermissionAdmin}},
		{name: "admin who is also leader", caller: auth.Identity{EmployeeID: "L", IsSA: true}, want: ViewPermission{true, PermissionAdmin}},
		{name: "leader", caller: auth.Identity{EmployeeID: "L"}, want: ViewPermission{true, PermissionLeader}},
		{name: "judge", caller: auth.Identity{EmployeeID: "J"}, want: ViewPermission{true, PermissionJudge}},
		{name: "self", caller: auth.Identity{EmployeeID: "T"}, want: ViewPermission{false, PermissionNone}},
		{name: "stranger", caller: auth.Identity{EmployeeID: "Z", IsRJ: true, IsPJ: true}, want: ViewPermission{false, PermissionNone}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveView(tc.caller, target))
		})
	}
}
