package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping_Sweep(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 10)

	accounts := &service.AccountService{Bank: e.client, Cache: e.cache}
	hk := service.NewHousekeepingService(e.client, e.cache, accounts, slogx.Discard(), time.Hour)

	// A deposit made elsewhere is picked up on the next sweep.
	_, err := e.client.Deposit(context.Background(), acc.a.Number, banksdk.OperationRequest{Amount: 15})
	require.NoError(t, err)

	hk.Sweep()
	cached, _ := e.cache.Account(acc.a.Number)
	require.Equal(t, 25.0, cached.Balance)

	require.NoError(t, e.client.ClearCredentials(context.Background()))
	hk.Sweep()
	require.Empty(t, e.cache.Accounts())
}

func TestHousekeeping_StartStop(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.loginAdmin(t)

	accounts := &service.AccountService{Bank: e.client, Cache: e.cache}
	hk := service.NewHousekeepingService(e.client, e.cache, accounts, nil, 10*time.Millisecond)
	hk.Start()

	require.Eventually(t, func() bool {
		return len(e.cache.Clients()) > 0
	}, time.Second, 10*time.Millisecond)

	hk.Stop()
}
