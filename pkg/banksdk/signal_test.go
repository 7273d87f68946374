package banksdk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenSignal(t *testing.T) {
	t.Parallel()

	t.Run("first resolve wins", func(t *testing.T) {
		t.Parallel()

		s := newTokenSignal()
		require.False(t, s.resolved())

		s.resolve("a", nil)
		s.resolve("b", errors.New("late"))
		require.True(t, s.resolved())

		token, err := s.wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, "a", token)
	})

	t.Run("releases every waiter", func(t *testing.T) {
		t.Parallel()

		s := newTokenSignal()
		results := make(chan string, 3)
		for range 3 {
			go func() {
				token, _ := s.wait(context.Background())
				results <- token
			}()
		}

		s.resolve("fresh", nil)
		for range 3 {
			select {
			case got := <-results:
				require.Equal(t, "fresh", got)
			case <-time.After(time.Second):
				t.Fatal("waiter not released")
			}
		}
	})

	t.Run("carries failure", func(t *testing.T) {
		t.Parallel()

		s := newTokenSignal()
		s.resolve("", &SessionExpiredError{Cause: ErrNoRefreshToken})

		_, err := s.wait(context.Background())
		require.ErrorIs(t, err, ErrSessionExpired)
		require.ErrorIs(t, err, ErrNoRefreshToken)
	})

	t.Run("wait honours context", func(t *testing.T) {
		t.Parallel()

		s := newTokenSignal()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := s.wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.False(t, s.resolved())
	})
}

func TestIsAuthEndpoint(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"/api/auth/login":        true,
		"/api/auth/register":     true,
		"/api/auth/refresh":      true,
		"/auth/refresh":          true,
		"/api/accounts":          false,
		"/api/clients/search":    false,
		"/api/auth/me":           false,
		"/api/transactions/auth": false,
	}
	for path, want := range cases {
		require.Equal(t, want, IsAuthEndpoint(path), path)
	}
}

func TestLoginRedirect(t *testing.T) {
	t.Parallel()

	route, query := loginRedirect("/transactions")
	require.Equal(t, RouteLogin, route)
	require.Equal(t, "/transactions", query.Get("returnUrl"))
	require.Equal(t, "true", query.Get("expired"))

	for _, current := range []string{"", "/login", "/register", "/login?expired=true"} {
		route, query := loginRedirect(current)
		require.Equal(t, RouteLogin, route)
		require.Nil(t, query, current)
	}
}
