package banksdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/jwtx"
)

// Login authenticates with a username and password and stores the
// credential pair returned by the server.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	out, err := sendJSON[AuthResponse](ctx, c, http.MethodPost, "/auth/login",
		LoginRequest{Username: username, Password: password}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates a user account. The reference backend answers with a
// pending response and no tokens until an administrator activates the
// account; tokens are stored if a backend returns them anyway.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/register", nil, req)
	if err != nil {
		return nil, err
	}

	// 201 on creation, 200 from older backends.
	expected := http.StatusCreated
	if resp.StatusCode == http.StatusOK {
		expected = http.StatusOK
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges refreshToken for a new credential pair. It does not
// store the result; the RefreshTransport does that.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh",
		url.Values{"refreshToken": {refreshToken}}, nil)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCredentials removes both halves of the credential pair.
func (c *SDKClient) ClearCredentials(ctx context.Context) error {
	return errors.Join(
		c.credentials.Delete(ctx, KeyAccessToken),
		c.credentials.Delete(ctx, KeyRefreshToken),
	)
}

// IsAuthenticated reports whether an access token is stored and is not
// inside the expiry grace window at now.
func (c *SDKClient) IsAuthenticated(ctx context.Context, now time.Time) bool {
	token, err := c.credentials.Get(ctx, KeyAccessToken)
	if err != nil || token == "" {
		return false
	}
	return !jwtx.Expired(token, now, jwtx.ExpiryGrace)
}

// HasRefreshToken reports whether a refresh token is stored.
func (c *SDKClient) HasRefreshToken(ctx context.Context) bool {
	token, err := c.credentials.Get(ctx, KeyRefreshToken)
	return err == nil && token != ""
}

// UserInfo decodes the stored access token. It returns nil when no token is
// stored or it cannot be decoded.
func (c *SDKClient) UserInfo(ctx context.Context) *UserInfo {
	token, err := c.credentials.Get(ctx, KeyAccessToken)
	if err != nil || token == "" {
		return nil
	}
	claims, err := jwtx.Decode(token)
	if err != nil {
		return nil
	}

	info := &UserInfo{Username: claims.Subject, Role: claims.Role}
	if exp := claims.Expiry(); !exp.IsZero() {
		info.ExpiresAt = exp.Unix()
	}
	return info
}

func (c *SDKClient) storeTokens(ctx context.Context, resp *AuthResponse) error {
	if resp.AccessToken != "" {
		if err := c.credentials.Set(ctx, KeyAccessToken, resp.AccessToken); err != nil {
			return fmt.Errorf("store access token: %w", err)
		}
	}
	if resp.RefreshToken != "" {
		if err := c.credentials.Set(ctx, KeyRefreshToken, resp.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	}
	return nil
}
