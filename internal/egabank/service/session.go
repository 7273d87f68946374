package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// ErrNotSignedIn is returned when an operation needs a stored access token.
var ErrNotSignedIn = errors.New("not signed in")

// SessionService signs the user in and out.
type SessionService struct {
	Bank      *banksdk.SDKClient
	Cache     *appstore.Store
	Navigator banksdk.Navigator

	// Now defaults to time.Now.
	Now func() time.Time
}

// Login stores the credential pair for username. Signing in as someone
// else over a live session empties the cache first.
func (s *SessionService) Login(ctx context.Context, username, password string) (*banksdk.AuthResponse, error) {
	prev := s.Bank.UserInfo(ctx)

	resp, err := s.Bank.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if prev != nil {
		if cur := s.Bank.UserInfo(ctx); cur == nil || cur.Username != prev.Username {
			s.Cache.Reset()
		}
	}
	slogx.FromContext(ctx).Info("signed in", "username", resp.Username, "role", resp.Role)
	return resp, nil
}

// Register creates a user. The account usually waits for activation, in
// which case nothing is stored and resp.Pending is set.
func (s *SessionService) Register(ctx context.Context, req banksdk.RegisterRequest) (*banksdk.AuthResponse, error) {
	resp, err := s.Bank.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("registered", "username", req.Username, "pending", resp.Pending)
	return resp, nil
}

// Logout clears the credential pair and every cached entity, then returns
// the user to the login screen.
func (s *SessionService) Logout(ctx context.Context) error {
	err := s.Bank.ClearCredentials(ctx)
	s.Cache.Reset()
	if s.Navigator != nil {
		s.Navigator.Navigate(banksdk.RouteLogin, nil)
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("signed out")
	return nil
}

// ExpiredLogout runs after the refresh coordinator ended the session. The
// credentials are already gone and the redirect already happened.
func (s *SessionService) ExpiredLogout(ctx context.Context) {
	s.Cache.Reset()
	slogx.FromContext(ctx).Info("session expired, cache cleared")
}

// IsAuthenticated reports whether a usable access token is stored.
func (s *SessionService) IsAuthenticated(ctx context.Context) bool {
	return s.Bank.IsAuthenticated(ctx, s.now())
}

// WhoAmI returns what the stored access token says about the user.
func (s *SessionService) WhoAmI(ctx context.Context) (*banksdk.UserInfo, error) {
	info := s.Bank.UserInfo(ctx)
	if info == nil {
		return nil, ErrNotSignedIn
	}
	return info, nil
}

// IsAdmin reports whether the signed-in user holds the admin role.
func (s *SessionService) IsAdmin(ctx context.Context) bool {
	info := s.Bank.UserInfo(ctx)
	return info != nil && info.Role == banksdk.RoleAdmin
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
