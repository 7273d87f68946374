package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/egabank/pkg/jwtx"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// AuthnMiddleware rejects requests without a valid bearer access token.
// The rejection is a plain 401, which is what the bank backend sends and
// what the client's refresh coordinator reacts to.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, r, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Debug("bearer rejected", "err", err)
				writeBearerError(w, r, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// RFC 6750 style challenge with the backend's JSON error body.
func writeBearerError(w http.ResponseWriter, r *http.Request, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, r, http.StatusUnauthorized, desc)
}
