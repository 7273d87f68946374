package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is anything that can sign Claims into a compact JWT.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a JWT and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a shared secret. The bank backend uses
// HMAC tokens. This type backs the in-process backend used by tests and the
// local demo server.
type HS256 struct {
	secret []byte

	// Use restricts Verify to tokens of this use. Empty accepts any.
	Use string

	// Now is the clock used by Verify. Defaults to time.Now.
	Now func() time.Time
}

// NewHS256 returns an HS256 signer/verifier over secret.
func NewHS256(secret []byte) *HS256 {
	return &HS256{secret: secret}
}

// Sign implements Signer.
func (h *HS256) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// WithUse returns a copy of h that only accepts tokens of the given use.
func (h *HS256) WithUse(use string) *HS256 {
	cp := *h
	cp.Use = use
	return &cp
}

// Verify implements Verifier. It checks the signature, expiry and token use.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if h.Use != "" && claims.Use != h.Use {
		return Claims{}, ErrWrongUse
	}
	return *claims, nil
}
