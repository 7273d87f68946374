package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode reads the claims segment of a token without checking the signature.
// Clients hold tokens they cannot verify. This is only good for local
// decisions such as "should I refresh before sending", never for trust.
func Decode(token string) (*Claims, error) {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// Expired reports whether token is expired at now with the given grace.
// Empty, undecodable and exp-less tokens count as expired.
func Expired(token string, now time.Time, grace time.Duration) bool {
	if token == "" {
		return true
	}
	claims, err := Decode(token)
	if err != nil {
		return true
	}
	return claims.ExpiredAt(now, grace)
}
