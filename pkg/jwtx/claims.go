package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryGrace is how long before "exp" an access token is already treated
// as expired, so a request never leaves with a token about to die in flight.
const ExpiryGrace = 30 * time.Second

// Default lifetimes used by token issuers in tests and the local backend fake.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use, carried in the "typ" claim so a refresh token is never accepted
// as an access token.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrNoExpiry   = errors.New("jwtx: token has no exp claim")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrWrongUse   = errors.New("jwtx: wrong token use")
)

// Claims are the claims the EGA bank backend puts in its tokens. The subject
// is the username.
type Claims struct {
	jwt.RegisteredClaims

	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Use   string `json:"typ,omitempty"`
}

// NewClaims builds claims for subject valid for ttl from now.
func NewClaims(subject, role, use string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role: role,
		Use:  use,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Expiry returns the expiry instant, or the zero time when there is none.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ExpiredAt reports whether the claims count as expired at now, given the
// grace window. Claims without an expiry are always expired.
func (c *Claims) ExpiredAt(now time.Time, grace time.Duration) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Add(-grace))
}

// ValidateExpiry returns ErrExpired once exp has passed.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrNoExpiry
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
