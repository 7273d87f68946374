/*
Package banksdk provides a client SDK for the EGA bank REST API.

# Overview

An SDKClient wraps an http.Client whose transport is a RefreshTransport.
Every request except the auth endpoints leaves with the stored access
token, and a 401 is answered by refreshing the credential pair once and
replaying the request. Callers never see the expiry of an access token:
they see either the replayed response or an error wrapping
ErrSessionExpired when the session could not be renewed.

	client := banksdk.New(banksdk.Config{
		BaseURL:     "http://localhost:8080/api",
		Credentials: store,  // durable storage for the credential pair
		Navigator:   router, // receives the redirect to /login
	})

	if _, err := client.Login(ctx, "alice", "secret"); err != nil {
		return err
	}

	accounts, err := client.ListAccounts(ctx, 0, 10)

# Credential Pair

The access token and the refresh token live in a CredentialStore under the
fixed keys KeyAccessToken and KeyRefreshToken. Login stores both, Refresh
replaces them, and a terminal refresh failure deletes both. The client
decodes the access token without verifying it (see UserInfo and
IsAuthenticated); only the server decides whether a token is valid.

# Refresh Coordination

The RefreshTransport is idle until a request comes back 401. That request
starts the refresh. Every other request rejected while the refresh is in
flight parks on the same outcome instead of starting its own, so an expiry
seen by ten concurrent requests costs one refresh call:

	req A ──401──► refresh ──────────────► replay A
	req B ──401──► wait ─────────┘ ──────► replay B
	req C ──401──► wait ─────────┘ ──────► replay C

A 401 for a request that was sent with a token that has since been
replaced is replayed with the stored token directly.

With Config.Proactive set, a token already inside the 30 second expiry
window is refreshed before the request is sent. The 401 path still applies.

# Session Expiry

When there is no refresh token, the refresh call fails, or it returns no
access token, the transport ends the session: it deletes both credentials,
navigates to /login (with returnUrl and expired=true unless the user is
already on /login or /register) and calls Config.OnLogout. The request that
started the refresh and every parked request fail with an error for which
errors.Is(err, ErrSessionExpired) holds.

	_, err := client.ListAccounts(ctx, 0, 10)
	if errors.Is(err, banksdk.ErrSessionExpired) {
		// back to the login screen
	}

# Errors

Non-success responses become *APIError with the status code, the short
error name and the message the server gave:

	_, err := client.GetAccount(ctx, "FR76...")
	if banksdk.IsNotFound(err) {
		// ...
	}

# Metrics

Pass a *Metrics created with NewMetrics to count refreshes by outcome,
replays by reason, parked waiters and forced logouts.
*/
package banksdk
