package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/internal/banktest"
	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

type pair struct {
	a, b banksdk.Account
}

func seedAccounts(t *testing.T, e *env, balanceA float64) pair {
	t.Helper()
	owner := e.bank.AddClient(banksdk.ClientRequest{LastName: "Mensah", FirstName: "Ama"})
	a := e.bank.AddAccount(owner.ID, banksdk.AccountCurrent, balanceA)
	b := e.bank.AddAccount(owner.ID, banksdk.AccountSavings, 0)
	e.cache.Hydrate([]banksdk.Account{a, b}, nil)
	e.events.reset()
	return pair{a: a, b: b}
}

func kinds(events []appstore.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, string(ev.Kind())+"/"+ev.Action())
	}
	return out
}

func TestTransaction_DepositPatchesBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 10)

	txs := &service.TransactionService{Bank: e.client, Cache: e.cache}
	tx, err := txs.Deposit(ctx, acc.a.Number, 90, "salary")
	require.NoError(t, err)
	require.Equal(t, banksdk.TxDeposit, tx.Type)

	cached, _ := e.cache.Account(acc.a.Number)
	require.Equal(t, 100.0, cached.Balance)
	require.Equal(t, int64(1), e.cache.Counter(service.CounterTransactions))
	require.Equal(t, []string{"transaction/balance_update", "transaction/counter_increment"}, kinds(e.events.all()))
}

func TestTransaction_MissingBalanceTriggersRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, banktest.WithoutBalances())
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 50)

	txs := &service.TransactionService{Bank: e.client, Cache: e.cache}
	_, err := txs.Withdraw(ctx, acc.a.Number, 20, "")
	require.NoError(t, err)

	cached, _ := e.cache.Account(acc.a.Number)
	require.Equal(t, 50.0, cached.Balance, "no guess without a reported balance")
	require.Equal(t, []string{"system/refresh", "transaction/counter_increment"}, kinds(e.events.all()))
}

func TestTransaction_TransferReconcilesBothSides(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("both balances reported", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.loginAdmin(t)
		acc := seedAccounts(t, e, 5000)

		txs := &service.TransactionService{Bank: e.client, Cache: e.cache}
		_, err := txs.Transfer(ctx, banksdk.TransferRequest{Source: acc.a.Number, Destination: acc.b.Number, Amount: 1000})
		require.NoError(t, err)

		a, _ := e.cache.Account(acc.a.Number)
		b, _ := e.cache.Account(acc.b.Number)
		require.Equal(t, 4000.0, a.Balance)
		require.Equal(t, 1000.0, b.Balance)
		require.Equal(t, []string{
			"transaction/balance_update",
			"transaction/balance_update",
			"transaction/counter_increment",
		}, kinds(e.events.all()))
	})

	t.Run("only source balance reported", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, banktest.WithoutDestinationBalance())
		e.loginAdmin(t)
		acc := seedAccounts(t, e, 5000)

		txs := &service.TransactionService{Bank: e.client, Cache: e.cache}
		_, err := txs.Transfer(ctx, banksdk.TransferRequest{Source: acc.a.Number, Destination: acc.b.Number, Amount: 1000})
		require.NoError(t, err)

		a, _ := e.cache.Account(acc.a.Number)
		b, _ := e.cache.Account(acc.b.Number)
		require.Equal(t, 4000.0, a.Balance)
		require.Equal(t, 0.0, b.Balance, "destination is not guessed")

		events := e.events.all()
		require.Contains(t, kinds(events), "system/refresh")
		for _, ev := range events {
			if u, ok := ev.(appstore.BalanceUpdated); ok {
				require.Equal(t, acc.a.Number, u.AccountNumber)
			}
		}
	})
}

func TestTransaction_ValidationBeforeNetwork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 10)

	txs := &service.TransactionService{Bank: e.client, Cache: e.cache}

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{"zero deposit", func() error { _, err := txs.Deposit(ctx, acc.a.Number, 0, ""); return err }, service.ErrInvalidAmount},
		{"negative withdrawal", func() error { _, err := txs.Withdraw(ctx, acc.a.Number, -5, ""); return err }, service.ErrInvalidAmount},
		{"self transfer", func() error {
			_, err := txs.Transfer(ctx, banksdk.TransferRequest{Source: acc.a.Number, Destination: acc.a.Number, Amount: 1})
			return err
		}, service.ErrSameAccount},
		{"short target", func() error {
			_, err := txs.Transfer(ctx, banksdk.TransferRequest{Source: acc.a.Number, Destination: "FR76", Amount: 1})
			return err
		}, service.ErrTargetTooShort},
		{"reversed period", func() error {
			_, err := txs.History(ctx, acc.a.Number, time.Now(), time.Now().AddDate(0, 0, -2))
			return err
		}, service.ErrInvalidPeriod},
	}
	for _, tc := range cases {
		require.ErrorIs(t, tc.call(), tc.want, tc.name)
	}

	require.Zero(t, e.bank.Hits("/transactions/"+acc.a.Number+"/deposit"))
	require.Zero(t, e.bank.Hits("/transactions/transfer"))
	require.Empty(t, e.events.all())
}

func TestTransaction_ServerRejectionLeavesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 10)

	txs := &service.TransactionService{Bank: e.client, Cache: e.cache}
	_, err := txs.Withdraw(ctx, acc.a.Number, 500, "")
	require.True(t, banksdk.IsStatus(err, http.StatusBadRequest))
	require.Empty(t, e.events.all())
	require.Zero(t, e.cache.Counter(service.CounterTransactions))
}

func TestTransaction_LookupTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.loginAdmin(t)
	acc := seedAccounts(t, e, 10)

	txs := &service.TransactionService{Bank: e.client, Cache: e.cache}

	got, err := txs.LookupTarget(ctx, acc.a.Number, acc.b.Number)
	require.NoError(t, err)
	require.Equal(t, acc.b.ID, got.ID)

	_, err = txs.LookupTarget(ctx, acc.a.Number, acc.a.Number)
	require.ErrorIs(t, err, service.ErrSameAccount)

	_, err = txs.LookupTarget(ctx, acc.a.Number, "FR76300")
	require.ErrorIs(t, err, service.ErrTargetTooShort)

	_, err = txs.LookupTarget(ctx, acc.a.Number, "FR7630004999999999999999999")
	require.True(t, banksdk.IsNotFound(err))

	e.bank.SetAccountActive(acc.b.Number, false)
	got, err = txs.LookupTarget(ctx, acc.a.Number, acc.b.Number)
	require.ErrorIs(t, err, service.ErrTargetInactive)
	require.NotNil(t, got)
}

func TestTransaction_Listings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	owner := e.bank.AddClient(banksdk.ClientRequest{LastName: "Agbeko", FirstName: "Yao"})
	mine := e.bank.AddAccount(owner.ID, banksdk.AccountCurrent, 100)
	e.bank.AddUser("yao", "secret123", banksdk.RoleUser, owner.ID)
	e.login(t, "yao", "secret123")

	txs := &service.TransactionService{Bank: e.client, Cache: e.cache}
	_, err := txs.Deposit(ctx, mine.Number, 5, "")
	require.NoError(t, err)

	list, err := txs.Mine(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = txs.ForAccount(ctx, mine.Number)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = txs.All(ctx)
	require.True(t, banksdk.IsForbidden(err))
	require.False(t, errors.Is(err, banksdk.ErrSessionExpired), "403 is not a session problem")
}
