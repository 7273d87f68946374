package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okTransport(calls *int) http.RoundTripper {
	return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		*calls++
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("disabled config passes through", func(t *testing.T) {
		var calls int
		rt := httpx.Chain(okTransport(&calls), httpx.RateLimit(httpx.RateLimitConfig{}, httpx.HostKeyExtractor))

		for range 50 {
			req := httptest.NewRequest(http.MethodGet, "http://bank.local/api/accounts", nil)
			_, err := rt.RoundTrip(req)
			require.NoError(t, err)
		}
		require.Equal(t, 50, calls)
	})

	t.Run("burst goes straight through", func(t *testing.T) {
		var calls int
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 3}
		rt := httpx.Chain(okTransport(&calls), httpx.RateLimit(cfg, httpx.HostKeyExtractor))

		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "http://bank.local/api/accounts", nil)
			_, err := rt.RoundTrip(req)
			require.NoError(t, err)
		}
		require.Equal(t, 3, calls)
	})

	t.Run("over limit waits and honours context", func(t *testing.T) {
		var calls int
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
		rt := httpx.Chain(okTransport(&calls), httpx.RateLimit(cfg, httpx.HostKeyExtractor))

		req := httptest.NewRequest(http.MethodGet, "http://bank.local/", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		req = httptest.NewRequest(http.MethodGet, "http://bank.local/", nil).WithContext(ctx)
		_, err = rt.RoundTrip(req)
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("hosts are tracked separately", func(t *testing.T) {
		var calls int
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
		rt := httpx.Chain(okTransport(&calls), httpx.RateLimit(cfg, httpx.HostKeyExtractor))

		for _, host := range []string{"a.local", "b.local"} {
			req := httptest.NewRequest(http.MethodGet, "http://"+host+"/", nil)
			_, err := rt.RoundTrip(req)
			require.NoError(t, err)
		}
		require.Equal(t, 2, calls)
	})
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) httpx.TransportMiddleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	var calls int
	rt := httpx.Chain(okTransport(&calls), tag("outer"), tag("inner"))
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://bank.local/", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"outer", "inner"}, order)
	require.Equal(t, 1, calls)
}
