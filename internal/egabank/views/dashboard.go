package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
)

// DashboardLoader fetches the admin overview.
type DashboardLoader func(ctx context.Context) (*service.Dashboard, error)

// Dashboard shows the admin overview. A balance update is applied to the
// recent accounts straight away and the overview is reloaded on the next
// render, since the totals moved too.
type Dashboard struct {
	base
	load DashboardLoader
	data *service.Dashboard
}

func NewDashboard(cache *appstore.Store, load DashboardLoader) *Dashboard {
	v := &Dashboard{load: load}
	v.subscribe(cache, appstore.OfKind(appstore.KindAccount, appstore.KindTransaction, appstore.KindClient, appstore.KindSystem), v.handle)
	return v
}

func (v *Dashboard) handle(ev appstore.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e := ev.(type) {
	case appstore.BalanceUpdated:
		if v.data != nil {
			for i := range v.data.RecentAccounts {
				if v.data.RecentAccounts[i].Number == e.AccountNumber {
					v.data.RecentAccounts[i].Balance = e.NewBalance
				}
			}
		}
	case appstore.Cleared:
		v.data = nil
	}
	v.touch()
}

func (v *Dashboard) Name() string { return "dashboard" }

// Snapshot returns the overview from the last load, or nil.
func (v *Dashboard) Snapshot() *service.Dashboard {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data == nil {
		return nil
	}
	d := *v.data
	d.RecentAccounts = append(d.RecentAccounts[:0:0], d.RecentAccounts...)
	d.RecentClients = append(d.RecentClients[:0:0], d.RecentClients...)
	return &d
}

func (v *Dashboard) Render(ctx context.Context, w io.Writer) error {
	stale, gen := v.pending()
	if stale || v.Snapshot() == nil {
		d, err := v.load(ctx)
		if err != nil {
			return fmt.Errorf("load dashboard: %w", err)
		}
		v.mu.Lock()
		v.data = d
		v.loaded(gen)
		v.mu.Unlock()
	}

	d := v.Snapshot()
	if d == nil {
		_, err := fmt.Fprintln(w, "No data.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "Clients\t%d\n", d.Stats.TotalClients)
	fmt.Fprintf(tw, "Accounts\t%d (%d active)\n", d.Stats.TotalAccounts, d.Stats.ActiveAccounts)
	fmt.Fprintf(tw, "Total balance\t%s\n", money(d.Stats.TotalBalance))
	fmt.Fprintf(tw, "Transactions\t%d\n", d.Stats.TotalTransactions)
	if d.Approximated {
		fmt.Fprintln(tw, "\t(approximated from recent lists)")
	}
	if len(d.Degraded) > 0 {
		fmt.Fprintf(tw, "Unavailable\t%s\n", strings.Join(d.Degraded, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecent clients")
	tw = newTable(w)
	for _, c := range d.RecentClients {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\n", c.ID, c.FirstName, c.LastName, c.Email)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecent accounts")
	tw = newTable(w)
	for _, a := range d.RecentAccounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Number, a.Type, money(a.Balance), a.ClientName)
	}
	return tw.Flush()
}
