package banksdk_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/internal/banktest"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

func newBank(t *testing.T, opts ...banktest.Option) (*banktest.Server, *banksdk.SDKClient) {
	t.Helper()
	bank := banktest.New(t, opts...)
	client := banksdk.New(banksdk.Config{BaseURL: bank.BaseURL()})
	return bank, client
}

func loginAdmin(t *testing.T, client *banksdk.SDKClient) {
	t.Helper()
	_, err := client.Login(context.Background(), banktest.AdminUsername, banktest.AdminPassword)
	require.NoError(t, err)
}

func TestClient_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores credential pair", func(t *testing.T) {
		t.Parallel()
		_, client := newBank(t)

		resp, err := client.Login(ctx, banktest.AdminUsername, banktest.AdminPassword)
		require.NoError(t, err)
		require.Equal(t, banksdk.RoleAdmin, resp.Role)

		access, _ := client.Credentials().Get(ctx, banksdk.KeyAccessToken)
		require.Equal(t, resp.AccessToken, access)
		require.True(t, client.HasRefreshToken(ctx))
		require.True(t, client.IsAuthenticated(ctx, time.Now()))

		info := client.UserInfo(ctx)
		require.NotNil(t, info)
		require.Equal(t, banktest.AdminUsername, info.Username)
		require.Equal(t, banksdk.RoleAdmin, info.Role)
		require.Greater(t, info.ExpiresAt, time.Now().Unix())
	})

	t.Run("bad password is not recovered", func(t *testing.T) {
		t.Parallel()
		bank, client := newBank(t)

		_, err := client.Login(ctx, banktest.AdminUsername, "wrong")
		require.True(t, banksdk.IsUnauthorized(err))
		require.Contains(t, err.Error(), "Nom d'utilisateur ou mot de passe incorrect")
		require.Zero(t, bank.Refreshes())
		require.False(t, client.IsAuthenticated(ctx, time.Now()))
	})
}

func TestClient_RegisterIsPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newBank(t)

	resp, err := client.Register(ctx, banksdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.True(t, resp.Pending)
	require.False(t, client.HasRefreshToken(ctx), "pending registration stores nothing")

	_, err = client.Login(ctx, "alice", "secret123")
	require.True(t, banksdk.IsForbidden(err))

	loginAdmin(t, client)
	pending, err := client.PendingUsers(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = client.ActivateUser(ctx, pending[0].ID)
	require.NoError(t, err)

	_, err = client.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
}

func TestClient_SurvivesServerSideExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bank, client := newBank(t)
	loginAdmin(t, client)

	before, _ := client.Credentials().Get(ctx, banksdk.KeyAccessToken)
	bank.ExpireAccessTokens()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.ListAccounts(ctx, 0, 10)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, bank.Refreshes())

	after, _ := client.Credentials().Get(ctx, banksdk.KeyAccessToken)
	require.NotEqual(t, before, after)
}

func TestClient_RevokedRefreshEndsSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bank, client := newBank(t)
	loginAdmin(t, client)

	bank.ExpireAccessTokens()
	bank.RevokeRefreshTokens()

	_, err := client.DashboardStats(ctx)
	require.ErrorIs(t, err, banksdk.ErrSessionExpired)
	require.False(t, client.HasRefreshToken(ctx))
	require.Nil(t, client.UserInfo(ctx))
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newBank(t)
	loginAdmin(t, client)

	_, err := client.GetAccount(ctx, "FR7600000000000000000000000")
	require.True(t, banksdk.IsNotFound(err))

	_, err = client.CreateClient(ctx, banksdk.ClientRequest{})
	var apiErr *banksdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Fields, "nom")
	require.Contains(t, apiErr.Fields, "prenom")
}

func TestClient_Operations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bank, client := newBank(t)
	loginAdmin(t, client)

	owner, err := client.CreateClient(ctx, banksdk.ClientRequest{
		LastName: "Doe", FirstName: "Jane", BirthDate: "1990-04-12", Sex: banksdk.SexFemale,
		Email: "jane@example.com",
	})
	require.NoError(t, err)

	src, err := client.CreateAccount(ctx, banksdk.AccountRequest{ClientID: owner.ID, Type: banksdk.AccountCurrent})
	require.NoError(t, err)
	dst := bank.AddAccount(owner.ID, banksdk.AccountSavings, 0)

	tx, err := client.Deposit(ctx, src.Number, banksdk.OperationRequest{Amount: 100})
	require.NoError(t, err)
	require.NotNil(t, tx.BalanceAfter)
	require.Equal(t, 100.0, *tx.BalanceAfter)

	tx, err = client.Transfer(ctx, banksdk.TransferRequest{Source: src.Number, Destination: dst.Number, Amount: 40})
	require.NoError(t, err)
	require.Equal(t, 60.0, *tx.BalanceAfter)
	require.Equal(t, 40.0, *tx.DestinationBalanceAfter)

	_, err = client.Withdraw(ctx, src.Number, banksdk.OperationRequest{Amount: 1000})
	require.True(t, banksdk.IsStatus(err, http.StatusBadRequest))

	today := time.Now()
	history, err := client.History(ctx, src.Number, today.AddDate(0, 0, -1), today)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, banksdk.TxTransfer, history[0].Type, "newest first")

	details, err := client.ClientDetails(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, details.Accounts, 2)

	var pdf bytes.Buffer
	st, err := client.DownloadStatement(ctx, src.Number, today.AddDate(0, -1, 0), today, &pdf)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pdf.String(), "%PDF-"))
	require.Equal(t, int64(pdf.Len()), st.Size)
	require.Equal(t, "application/pdf", st.ContentType)
	require.True(t, strings.HasPrefix(st.Filename, "releve_"+src.Number))
}

func TestClient_Profile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bank, client := newBank(t)

	c := bank.AddClient(banksdk.ClientRequest{LastName: "Martin", FirstName: "Luc"})
	bank.AddAccount(c.ID, banksdk.AccountCurrent, 25)
	bank.AddUser("luc", "secret123", banksdk.RoleUser, c.ID)

	_, err := client.Login(ctx, "luc", "secret123")
	require.NoError(t, err)

	me, err := client.MyProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, c.ID, me.ID)
	require.Len(t, me.Accounts, 1)

	updated, err := client.UpdateMyProfile(ctx, banksdk.ProfileUpdateRequest{Phone: "+22890000000"})
	require.NoError(t, err)
	require.Equal(t, "+22890000000", updated.Phone)

	_, err = client.ListClients(ctx, 0, 10)
	require.True(t, banksdk.IsForbidden(err), "admin only")
}
