package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfreview/internal/domain/directory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := directory.NewMemoryStore(directory.Organisation{
		Employees: []directory.Employee{{ID: "E1", Name: "Ada", IsRJ: true}},
	})
	store := NewMemoryStore()
	hash, err := HashPassword("initial-pass")
	require.NoError(t, err)
	require.NoError(t, store.UpsertCredential(context.Background(), Credential{Username: "ada", EmployeeID: "E1", PasswordHash: hash}))
	require.NoError(t, store.UpsertCredential(context.Background(), Credential{Username: "ghost", EmployeeID: "E404", PasswordHash: hash}))
	return NewService(store, dir, "test-secret", time.Hour)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, " ada ", "initial-pass")
	require.NoError(t, err)
	assert.Equal(t, Identity{EmployeeID: "E1", IsRJ: true}, result.Identity)
	assert.Equal(t, "Ada", result.Employee.Name)

	identity, err := svc.Authenticate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Identity, identity)

	for _, tc := range []struct{ user, pass string }{
		{"ada", "wrong-pass"},
		{"nobody", "initial-pass"},
		{"", ""},
		{"ghost", "initial-pass"},
	} {
		_, err := svc.Login(ctx, tc.user, tc.pass)
		assert.True(t, errors.Is(err, ErrInvalidCredentials), "user %q", tc.user)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "E1", "initial-pass", "short")
	assert.True(t, errors.Is(err, ErrPasswordPolicy))

	err = svc.ChangePassword(ctx, "E1", "wrong-pass", "brand-new-pass")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	require.NoError(t, svc.ChangePassword(ctx, "E1", "initial-pass", "brand-new-pass"))

	_, err = svc.Login(ctx, "ada", "initial-pass")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.Login(ctx, "ada", "brand-new-pass")
	assert.NoError(t, err)
}
