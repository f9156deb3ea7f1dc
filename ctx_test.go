package authclient_test

import (
	"context"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerContext(t *testing.T) {
	_, ok := authclient.FromContext(context.Background())
	assert.False(t, ok)

	c := authclient.NewController(&memStore{}, &MockVerifier{}, authclient.WithLogger(&captureLogger{}))
	ctx := authclient.WithContext(context.Background(), c)

	got, ok := authclient.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = authclient.UserFromContext(ctx)
	assert.False(t, ok)

	u := &authclient.User{ID: "u1"}
	got2, ok := authclient.UserFromContext(authclient.WithUserContext(ctx, u))
	require.True(t, ok)
	assert.Same(t, u, got2)
}

func TestGetRouterSnapshot(t *testing.T) {
	ctx := router.NewMockContext()

	_, ok := authclient.GetRouterSnapshot(ctx, "")
	assert.False(t, ok)
	assert.False(t, authclient.CanFromRouter(ctx, "models", "read"))

	admin := &authclient.User{ID: "a", Groups: []authclient.Group{{Name: "admin"}}}
	ctx.LocalsMock[authclient.DefaultLocalsKey] = authclient.Snapshot{
		State:           authclient.StateAuthenticated,
		User:            admin,
		Token:           "t",
		IsAuthenticated: true,
	}

	snap, ok := authclient.GetRouterSnapshot(ctx, "")
	require.True(t, ok)
	assert.Equal(t, "a", snap.User.ID)
	assert.True(t, authclient.CanFromRouter(ctx, "models", "delete"))
}
