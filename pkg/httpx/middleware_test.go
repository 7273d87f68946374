package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/httpx"
	"github.com/aussiebroadwan/egabank/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAuthnAndRole(t *testing.T) {
	t.Parallel()

	signer := jwtx.NewHS256([]byte("secret"))
	verifier := signer.WithUse(jwtx.UseAccess)

	var subject string
	handler := httpx.AuthnMiddleware(verifier)(
		httpx.RequireRole("ROLE_ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject = httpx.SubjectFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})),
	)

	sign := func(role, use string, ttl time.Duration) string {
		tok, err := signer.Sign(jwtx.NewClaims("alice", role, use, ttl, time.Now()))
		require.NoError(t, err)
		return tok
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"expired token", "Bearer " + sign("ROLE_ADMIN", jwtx.UseAccess, -time.Minute), http.StatusUnauthorized},
		{"refresh token used as access", "Bearer " + sign("ROLE_ADMIN", jwtx.UseRefresh, time.Hour), http.StatusUnauthorized},
		{"wrong role", "Bearer " + sign("ROLE_USER", jwtx.UseAccess, time.Hour), http.StatusForbidden},
		{"admin", "Bearer " + sign("ROLE_ADMIN", jwtx.UseAccess, time.Hour), http.StatusNoContent},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/users/pending", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, tc.want, rec.Code, tc.name)
	}
	require.Equal(t, "alice", subject)
}
