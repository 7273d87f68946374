package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

func TestClient_WritesMirrorIntoCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)

	clients := service.NewClientService(e.client, e.cache)

	created, err := clients.Create(ctx, banksdk.ClientRequest{
		LastName: "Adjovi", FirstName: "Kossi", BirthDate: "1985-02-01", Sex: banksdk.SexMale,
	})
	require.NoError(t, err)
	_, ok := e.cache.Client(created.ID)
	require.True(t, ok)

	updated, err := clients.Update(ctx, created.ID, banksdk.ClientRequest{
		LastName: "Adjovi", FirstName: "Kossivi", BirthDate: "1985-02-01", Sex: banksdk.SexMale,
	})
	require.NoError(t, err)
	require.Equal(t, "Kossivi", updated.FirstName)
	cached, _ := e.cache.Client(created.ID)
	require.Equal(t, "Kossivi", cached.FirstName)

	_, err = clients.Delete(ctx, created.ID)
	require.NoError(t, err)
	_, ok = e.cache.Client(created.ID)
	require.False(t, ok)

	events := e.events.all()
	require.Len(t, events, 3)
	require.IsType(t, appstore.ClientCreated{}, events[0])
	require.IsType(t, appstore.ClientUpdated{}, events[1])
	require.IsType(t, appstore.ClientDeleted{}, events[2])
}

func TestClient_SearchSeesWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)

	clients := service.NewClientService(e.client, e.cache)

	page, err := clients.Search(ctx, "mawuli", 0, 10)
	require.NoError(t, err)
	require.Empty(t, page.Content)

	_, err = clients.Search(ctx, "mawuli", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, e.bank.Hits("/clients/search"), "repeated query answered from memory")

	_, err = clients.Create(ctx, banksdk.ClientRequest{LastName: "Mawuli", FirstName: "Edem"})
	require.NoError(t, err)

	page, err = clients.Search(ctx, "mawuli", 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	require.Equal(t, 2, e.bank.Hits("/clients/search"))

	got, err := clients.Get(ctx, page.Content[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Edem", got.FirstName)
}

func TestClient_Profile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	owner := e.bank.AddClient(banksdk.ClientRequest{LastName: "Tetteh", FirstName: "Abla"})
	e.bank.AddAccount(owner.ID, banksdk.AccountCurrent, 12)
	e.bank.AddUser("abla", "secret123", banksdk.RoleUser, owner.ID)
	e.login(t, "abla", "secret123")

	clients := service.NewClientService(e.client, e.cache)

	me, err := clients.Me(ctx)
	require.NoError(t, err)
	require.Len(t, me.Accounts, 1)

	_, err = clients.UpdateProfile(ctx, banksdk.ProfileUpdateRequest{Address: "Lomé"})
	require.NoError(t, err)
	cached, ok := e.cache.Client(owner.ID)
	require.True(t, ok, "profile update upserts the cached client")
	require.Equal(t, "Lomé", cached.Address)
	require.Empty(t, cached.Accounts)

	details, err := clients.Details(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, details.AccountCount)
}

func TestStatementAndUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 40)

	statements := &service.StatementService{Bank: e.client}
	var buf bytes.Buffer
	now := time.Now()
	st, err := statements.Download(ctx, acc.a.Number, now.AddDate(0, -1, 0), now, &buf)
	require.NoError(t, err)
	require.Positive(t, st.Size)

	_, err = statements.Download(ctx, acc.a.Number, now, now.AddDate(0, -1, 0), &buf)
	require.ErrorIs(t, err, service.ErrInvalidPeriod)

	sessions := &service.SessionService{Bank: e.client, Cache: e.cache}
	_, err = sessions.Register(ctx, banksdk.RegisterRequest{Username: "efua", Email: "efua@example.com", Password: "secret123"})
	require.NoError(t, err)

	users := &service.UserService{Bank: e.client}
	pending, err := users.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "efua", pending[0].Username)

	_, err = users.Activate(ctx, pending[0].ID)
	require.NoError(t, err)
	pending, err = users.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = users.Deactivate(ctx, 9999)
	require.True(t, banksdk.IsNotFound(err))
}
