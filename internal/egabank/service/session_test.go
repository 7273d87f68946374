package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/internal/banktest"
	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestSession_LoginAndLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sessions := &service.SessionService{Bank: e.client, Cache: e.cache, Navigator: e.nav}

	_, err := sessions.Login(ctx, banktest.AdminUsername, banktest.AdminPassword)
	require.NoError(t, err)
	require.True(t, sessions.IsAuthenticated(ctx))
	require.True(t, sessions.IsAdmin(ctx))

	info, err := sessions.WhoAmI(ctx)
	require.NoError(t, err)
	require.Equal(t, banktest.AdminUsername, info.Username)

	e.cache.AddAccount(banksdk.Account{Number: "FR7630004000000000000000001"})
	e.events.reset()

	require.NoError(t, sessions.Logout(ctx))

	require.False(t, sessions.IsAuthenticated(ctx))
	require.False(t, e.client.HasRefreshToken(ctx))
	require.Empty(t, e.cache.Accounts())

	events := e.events.all()
	require.Len(t, events, 1)
	require.IsType(t, appstore.Cleared{}, events[0])

	route, query := e.nav.current()
	require.Equal(t, banksdk.RouteLogin, route)
	require.Empty(t, query)

	_, err = sessions.WhoAmI(ctx)
	require.ErrorIs(t, err, service.ErrNotSignedIn)
}

func TestSession_RegisterPendingStoresNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sessions := &service.SessionService{Bank: e.client, Cache: e.cache}
	resp, err := sessions.Register(ctx, banksdk.RegisterRequest{
		Username: "kofi",
		Email:    "kofi@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.True(t, resp.Pending)
	require.False(t, sessions.IsAuthenticated(ctx))
}

func TestSession_ExpiredCredentialIsNotAuthenticated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	now := time.Now()
	token, err := jwtx.NewHS256([]byte("any")).Sign(
		jwtx.NewClaims("alice", banksdk.RoleUser, jwtx.UseAccess, -60*time.Second, now))
	require.NoError(t, err)
	require.NoError(t, e.client.Credentials().Set(ctx, banksdk.KeyAccessToken, token))

	sessions := &service.SessionService{Bank: e.client, Cache: e.cache, Now: func() time.Time { return now }}
	require.False(t, sessions.IsAuthenticated(ctx))
	require.Zero(t, e.bank.Hits("/auth/refresh"), "decided locally")

	info, err := sessions.WhoAmI(ctx)
	require.NoError(t, err, "claims are still readable")
	require.Equal(t, now.Add(-60*time.Second).Unix(), info.ExpiresAt)
}

func TestSession_ExpiredLogoutClearsCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sessions := &service.SessionService{Bank: e.client, Cache: e.cache, Navigator: e.nav}
	client := banksdk.New(banksdk.Config{
		BaseURL:     e.bank.BaseURL(),
		Credentials: e.client.Credentials(),
		Navigator:   e.nav,
		OnLogout:    sessions.ExpiredLogout,
	})
	sessions.Bank = client

	_, err := sessions.Login(ctx, banktest.AdminUsername, banktest.AdminPassword)
	require.NoError(t, err)
	e.cache.AddAccount(banksdk.Account{Number: "FR7630004000000000000000001"})

	e.bank.ExpireAccessTokens()
	e.bank.RevokeRefreshTokens()

	_, err = client.ListAccounts(ctx, 0, 5)
	require.ErrorIs(t, err, banksdk.ErrSessionExpired)
	require.Empty(t, e.cache.Accounts())

	route, query := e.nav.current()
	require.Equal(t, banksdk.RouteLogin, route)
	require.Equal(t, "/dashboard", query.Get("returnUrl"))
	require.Equal(t, "true", query.Get("expired"))
}

func TestSession_SwitchingUserClearsCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.bank.AddUser("bob", "bob-secret", banksdk.RoleUser, 0)

	sessions := &service.SessionService{Bank: e.client, Cache: e.cache, Navigator: e.nav}

	_, err := sessions.Login(ctx, banktest.AdminUsername, banktest.AdminPassword)
	require.NoError(t, err)
	e.cache.AddAccount(banksdk.Account{Number: "FR7630004000000000000000001", Balance: 1e6})
	e.cache.IncrementCounter("transactions")

	t.Run("same user keeps the cache", func(t *testing.T) {
		_, err := sessions.Login(ctx, banktest.AdminUsername, banktest.AdminPassword)
		require.NoError(t, err)
		require.Len(t, e.cache.Accounts(), 1)
	})

	t.Run("another user starts empty", func(t *testing.T) {
		e.events.reset()

		_, err := sessions.Login(ctx, "bob", "bob-secret")
		require.NoError(t, err)

		info, err := sessions.WhoAmI(ctx)
		require.NoError(t, err)
		require.Equal(t, "bob", info.Username)

		require.Empty(t, e.cache.Accounts())
		require.Zero(t, e.cache.Counter("transactions"))

		events := e.events.all()
		require.Len(t, events, 1)
		require.IsType(t, appstore.Cleared{}, events[0])
	})
}
