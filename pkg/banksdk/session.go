package banksdk

import (
	"context"
	"net/url"
	"strings"
)

// Fixed keys under which the credential pair lives in durable storage.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Routes the client knows about. Navigating to RouteLogin after a terminal
// refresh failure must never loop, so both auth routes are special.
const (
	RouteLogin    = "/login"
	RouteRegister = "/register"
)

// CredentialStore is durable client-side storage for the credential pair.
// Get returns "" with a nil error when the key is absent.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Navigator moves the user between screens. The refresh coordinator uses it
// to send the user to the login screen when the session cannot be renewed.
type Navigator interface {
	CurrentRoute() string
	Navigate(route string, query url.Values)
}

// authEndpoints never carry a bearer token and never trigger recovery.
var authEndpoints = []string{"/auth/login", "/auth/register", "/auth/refresh"}

// IsAuthEndpoint reports whether path addresses one of the auth endpoints.
func IsAuthEndpoint(path string) bool {
	for _, p := range authEndpoints {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// isAuthRoute reports whether the user is already on an auth screen.
func isAuthRoute(route string) bool {
	path, _, _ := strings.Cut(route, "?")
	return path == "" || path == RouteLogin || path == RouteRegister
}

// loginRedirect returns where a terminal logout sends the user: back to the
// login screen, remembering the current screen unless it is an auth screen.
func loginRedirect(current string) (string, url.Values) {
	if isAuthRoute(current) {
		return RouteLogin, nil
	}
	return RouteLogin, url.Values{
		"returnUrl": {current},
		"expired":   {"true"},
	}
}
