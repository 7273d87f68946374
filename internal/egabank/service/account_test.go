package service_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

func TestAccount_CreateCachesAndRefreshes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)

	owner := e.bank.AddClient(banksdk.ClientRequest{LastName: "Kpodar", FirstName: "Esi"})
	accounts := &service.AccountService{Bank: e.client, Cache: e.cache}

	created, err := accounts.Create(ctx, banksdk.AccountRequest{ClientID: owner.ID, Type: banksdk.AccountSavings})
	require.NoError(t, err)

	cached, ok := e.cache.Account(created.Number)
	require.True(t, ok)
	require.Equal(t, banksdk.AccountSavings, cached.Type)
	require.Equal(t, []string{"account/created", "system/refresh"}, kinds(e.events.all()))

	forClient, err := accounts.ForClient(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, forClient, 1)

	e.events.reset()
	_, err = accounts.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	got, err := accounts.Get(ctx, created.Number)
	require.NoError(t, err)
	require.False(t, got.Active)

	_, err = accounts.Delete(ctx, created.ID)
	require.NoError(t, err)
	_, err = accounts.Get(ctx, created.Number)
	require.True(t, banksdk.IsNotFound(err))

	require.Equal(t, []string{"system/refresh", "system/refresh"}, kinds(e.events.all()))
}

func TestAccount_Hydrate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin loads first page", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.loginAdmin(t)
		owner := e.bank.AddClient(banksdk.ClientRequest{LastName: "Doe", FirstName: "J"})
		for range 3 {
			e.bank.AddAccount(owner.ID, banksdk.AccountCurrent, 1)
		}

		accounts := &service.AccountService{Bank: e.client, Cache: e.cache}
		require.NoError(t, accounts.Hydrate(ctx, 2))
		require.Len(t, e.cache.Accounts(), 2)
		require.Len(t, e.cache.Clients(), 2)

		events := e.events.all()
		require.Len(t, events, 1)
		require.IsType(t, appstore.Hydrated{}, events[0])
	})

	t.Run("user loads own profile", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		owner := e.bank.AddClient(banksdk.ClientRequest{LastName: "Doe", FirstName: "J"})
		own := e.bank.AddAccount(owner.ID, banksdk.AccountCurrent, 7)
		other := e.bank.AddClient(banksdk.ClientRequest{LastName: "Roe", FirstName: "R"})
		e.bank.AddAccount(other.ID, banksdk.AccountCurrent, 9)
		e.bank.AddUser("jdoe", "secret123", banksdk.RoleUser, owner.ID)
		e.login(t, "jdoe", "secret123")

		accounts := &service.AccountService{Bank: e.client, Cache: e.cache}
		require.NoError(t, accounts.Hydrate(ctx, 0))

		cached := e.cache.Accounts()
		require.Len(t, cached, 1)
		require.Equal(t, own.Number, cached[0].Number)

		c, ok := e.cache.Client(owner.ID)
		require.True(t, ok)
		require.Empty(t, c.Accounts)
	})

	t.Run("signed out", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		accounts := &service.AccountService{Bank: e.client, Cache: e.cache}
		require.ErrorIs(t, accounts.Hydrate(ctx, 0), service.ErrNotSignedIn)
	})
}
