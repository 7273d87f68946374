package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestHS256(t *testing.T) {
	t.Parallel()

	h := jwtx.NewHS256([]byte("bank-secret"))
	now := time.Now()

	access, err := h.Sign(jwtx.NewClaims("alice", "ROLE_USER", jwtx.UseAccess, time.Minute, now))
	require.NoError(t, err)
	refresh, err := h.Sign(jwtx.NewClaims("alice", "ROLE_USER", jwtx.UseRefresh, time.Hour, now))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		claims, err := h.Verify(access)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.Subject)
		require.Equal(t, jwtx.UseAccess, claims.Use)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := jwtx.NewHS256([]byte("other")).Verify(access)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("expired", func(t *testing.T) {
		later := *h
		later.Now = func() time.Time { return now.Add(2 * time.Minute) }
		_, err := later.Verify(access)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("use restriction", func(t *testing.T) {
		_, err := h.WithUse(jwtx.UseAccess).Verify(refresh)
		require.ErrorIs(t, err, jwtx.ErrWrongUse)

		_, err = h.WithUse(jwtx.UseRefresh).Verify(refresh)
		require.NoError(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := h.Verify("nope")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}
