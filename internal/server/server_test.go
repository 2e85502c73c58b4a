package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelsproul/website/internal/config"
	"github.com/michaelsproul/website/internal/store"
	"github.com/michaelsproul/website/internal/users"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Environment:     "development",
		StoreBackend:    "memory",
		SessionTTLHours: 1,
	}
	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)

	// skip bcrypt in unit tests
	srv.users.HashFunc = func(password string) (string, error) {
		return "hashed:" + password, nil
	}
	srv.users.CheckFunc = func(password, hash string) bool {
		return "hashed:"+password == hash
	}
	return srv
}

func TestNewDataStore_UnknownBackend(t *testing.T) {
	_, err := NewDataStore(context.Background(), &config.Config{StoreBackend: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestServer_LoginFlow(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)

	_, err := srv.CreateUser(ctx, "michael", "correct-horse", true)
	require.NoError(t, err)

	session, err := srv.Login(ctx, "michael", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "michael", session.Username)

	found, ok := srv.Authenticate(session.Token)
	require.True(t, ok)
	assert.Equal(t, session.UserID, found.UserID)

	assert.True(t, srv.Logout(session.Token))
	_, ok = srv.Authenticate(session.Token)
	assert.False(t, ok)
	assert.False(t, srv.Logout(session.Token))
}

func TestServer_LoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)

	_, err := srv.CreateUser(ctx, "michael", "correct-horse", false)
	require.NoError(t, err)

	_, err = srv.Login(ctx, "michael", "wrong")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = srv.Login(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	assert.Zero(t, srv.Sessions().Count())
}

func TestServer_CreateUser_UniqueIndexBacksDuplicateCheck(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)

	_, err := srv.CreateUser(ctx, "michael", "pw", false)
	require.NoError(t, err)
	_, err = srv.CreateUser(ctx, "michael", "pw2", false)
	assert.ErrorIs(t, err, users.ErrDuplicateUser)
}

func TestServer_ServicesShareOneStore(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)

	_, err := srv.CreateUser(ctx, "michael", "pw", false)
	require.NoError(t, err)

	// the store accessor sees what the service wrote
	doc, err := srv.Store().FindOne(ctx, users.Collection, store.Filter{"name": "michael"})
	require.NoError(t, err)
	name, err := doc.Str("name")
	require.NoError(t, err)
	assert.Equal(t, "michael", name)
}
