package nav_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/aussiebroadwan/egabank/internal/banktest"
	"github.com/aussiebroadwan/egabank/internal/egabank/nav"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

var _ banksdk.Navigator = (*nav.Router)(nil)

func TestRouter_Navigate(t *testing.T) {
	t.Parallel()

	r := nav.New(nav.RouteDashboard)
	require.Equal(t, nav.RouteDashboard, r.CurrentRoute())

	var seen []string
	cancel := r.OnNavigate(func(route string, q url.Values) {
		seen = append(seen, route+"|"+q.Get("page"))
	})

	r.Navigate(nav.RouteAccounts, url.Values{"page": {"2"}})
	require.Equal(t, "/accounts?page=2", r.CurrentRoute())
	require.Equal(t, nav.RouteAccounts, r.Path())
	require.Equal(t, "2", r.Query().Get("page"))

	cancel()
	r.Navigate(nav.RouteClients, nil)

	require.Equal(t, []string{"/accounts|2"}, seen)
	require.Equal(t, []string{"/dashboard", "/accounts?page=2", "/clients"}, r.History())
}

func TestRouter_QueryIsCopied(t *testing.T) {
	t.Parallel()

	q := url.Values{"page": {"1"}}
	r := nav.New(nav.RouteDashboard)
	r.Navigate(nav.RouteAccounts, q)
	q.Set("page", "9")

	got := r.Query()
	require.Equal(t, "1", got.Get("page"))
	got.Set("page", "5")
	require.Equal(t, "1", r.Query().Get("page"))
}

func TestRouter_SessionExpiryRedirect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bank := banktest.New(t)
	router := nav.New(nav.RouteTransactions)
	client := banksdk.New(banksdk.Config{BaseURL: bank.BaseURL(), Navigator: router})

	_, err := client.Login(ctx, banktest.AdminUsername, banktest.AdminPassword)
	require.NoError(t, err)
	router.Navigate(nav.RouteAccounts, url.Values{"page": {"3"}})

	bank.ExpireAccessTokens()
	bank.RevokeRefreshTokens()
	_, err = client.ListAccounts(ctx, 0, 10)
	require.ErrorIs(t, err, banksdk.ErrSessionExpired)

	require.True(t, router.SessionExpired())
	require.Equal(t, nav.RouteLogin, router.Path())
	require.Equal(t, "/accounts?page=3", router.ReturnURL())

	// Already on the login screen: no loop, no returnUrl.
	_, err = client.ListAccounts(ctx, 0, 10)
	require.ErrorIs(t, err, banksdk.ErrSessionExpired)
	require.Equal(t, nav.RouteLogin, router.CurrentRoute())
	require.False(t, router.SessionExpired())
}
