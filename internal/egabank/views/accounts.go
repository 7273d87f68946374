package views

import (
	"context"
	"fmt"
	"io"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
)

// AccountLoader fetches the accounts a view lists.
type AccountLoader func(ctx context.Context) ([]banksdk.Account, error)

// Accounts lists accounts. It reloads after any account or transaction
// event and after a full refresh request.
type Accounts struct {
	base
	load     AccountLoader
	accounts []banksdk.Account
}

func NewAccounts(cache *appstore.Store, load AccountLoader) *Accounts {
	v := &Accounts{load: load}
	v.subscribe(cache, accountsChanged, v.handle)
	return v
}

func accountsChanged(ev appstore.Event) bool {
	switch ev.(type) {
	case appstore.AccountCreated, appstore.BalanceUpdated, appstore.CounterIncremented,
		appstore.RefreshRequested, appstore.Cleared:
		return true
	}
	return false
}

func (v *Accounts) handle(ev appstore.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := ev.(appstore.Cleared); ok {
		v.accounts = nil
	}
	v.touch()
}

func (v *Accounts) Name() string { return "accounts" }

// Snapshot returns the accounts from the last load.
func (v *Accounts) Snapshot() []banksdk.Account {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]banksdk.Account(nil), v.accounts...)
}

func (v *Accounts) Render(ctx context.Context, w io.Writer) error {
	if stale, gen := v.pending(); stale {
		accounts, err := v.load(ctx)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		v.mu.Lock()
		v.accounts = accounts
		v.loaded(gen)
		v.mu.Unlock()
	}

	accounts := v.Snapshot()
	if len(accounts) == 0 {
		_, err := fmt.Fprintln(w, "No accounts.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "NUMBER\tTYPE\tBALANCE\tACTIVE\tOWNER")
	var total float64
	for _, a := range accounts {
		total += a.Balance
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Number, a.Type, money(a.Balance), yesNo(a.Active), a.ClientName)
	}
	fmt.Fprintf(tw, "\t\t%s\t\t\n", money(total))
	return tw.Flush()
}
