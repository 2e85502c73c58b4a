package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelsproul/website/internal/store"
)

// testService uses cheap stand-in hash funcs, bcrypt is exercised in pkg.
func testService() *Service {
	svc := NewService(store.NewMemStore(
		store.WithUniqueIndex(Collection, "name"),
	))
	svc.HashFunc = func(password string) (string, error) {
		return "hashed:" + password, nil
	}
	svc.CheckFunc = func(password, hash string) bool {
		return "hashed:"+password == hash
	}
	return svc
}

func TestService_CreateUser(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	user, err := svc.CreateUser(ctx, "michael", "password1", false)
	require.NoError(t, err)
	assert.Equal(t, "michael", user.Name)
	assert.False(t, user.Admin)
	assert.NotEqual(t, uuid.Nil, user.UUID)
	// the returned record never carries the digest
	assert.Empty(t, user.PasswordHash)

	admin, err := svc.CreateUser(ctx, "sarah", "password2", true)
	require.NoError(t, err)
	assert.True(t, admin.Admin)
	assert.NotEqual(t, user.UUID, admin.UUID)
}

func TestService_CreateUser_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	_, err := svc.CreateUser(ctx, "michael", "password1", false)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "michael", "different-password", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateUser)

	// the store still contains exactly one michael
	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "michael", all[0].Name)
}

func TestService_Validate(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.CreateUser(ctx, "michael", "password1", false)
	require.NoError(t, err)

	user, err := svc.Validate(ctx, "michael", "password1")
	require.NoError(t, err)
	assert.Equal(t, created.UUID, user.UUID)
	assert.Empty(t, user.PasswordHash)

	// wrong password and unknown username fail identically
	_, wrongPassErr := svc.Validate(ctx, "michael", "wrong")
	require.Error(t, wrongPassErr)
	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)

	_, noUserErr := svc.Validate(ctx, "nobody", "x")
	require.Error(t, noUserErr)
	assert.ErrorIs(t, noUserErr, ErrInvalidCredentials)
	assert.Equal(t, wrongPassErr.Error(), noUserErr.Error())
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.CreateUser(ctx, "michael", "password1", true)
	require.NoError(t, err)

	user, err := svc.GetByID(ctx, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, "michael", user.Name)
	assert.True(t, user.Admin)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ListAndCount(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	num, err := svc.NumUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, num)

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateUser(ctx, name, "pw-"+name, false)
		require.NoError(t, err)
	}

	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, u := range all {
		assert.Empty(t, u.PasswordHash)
	}

	num, err = svc.NumUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, num)
}
