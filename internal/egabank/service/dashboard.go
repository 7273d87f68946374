package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDashboardTimeout bounds each of the three dashboard calls.
	DefaultDashboardTimeout = 10 * time.Second

	// RecentSize is how many clients and accounts the dashboard lists.
	RecentSize = 5
)

// Dashboard is the admin overview.
type Dashboard struct {
	Stats          banksdk.DashboardStats
	RecentClients  []banksdk.Client
	RecentAccounts []banksdk.Account

	// Approximated is set when the stats call failed and Stats was derived
	// from the recent lists.
	Approximated bool

	// Degraded lists the parts that fell back to an empty value.
	Degraded []string
}

type DashboardService struct {
	Bank *banksdk.SDKClient

	// Timeout defaults to DefaultDashboardTimeout.
	Timeout time.Duration
}

// Load fetches stats, recent clients and recent accounts in parallel. Each
// call has its own timeout, and a failed call falls back to an empty value
// instead of failing the dashboard. Only an ended session fails Load.
func (s *DashboardService) Load(ctx context.Context) (*Dashboard, error) {
	log := slogx.FromContext(ctx)

	var (
		stats    *banksdk.DashboardStats
		clients  *banksdk.Page[banksdk.Client]
		accounts *banksdk.Page[banksdk.Account]
		errs     [3]error
	)

	var g errgroup.Group
	g.Go(func() error {
		stats, errs[0] = withTimeout(ctx, s.timeout(), s.Bank.DashboardStats)
		return nil
	})
	g.Go(func() error {
		clients, errs[1] = withTimeout(ctx, s.timeout(), func(ctx context.Context) (*banksdk.Page[banksdk.Client], error) {
			return s.Bank.ListClients(ctx, 0, RecentSize)
		})
		return nil
	})
	g.Go(func() error {
		accounts, errs[2] = withTimeout(ctx, s.timeout(), func(ctx context.Context) (*banksdk.Page[banksdk.Account], error) {
			return s.Bank.ListAccounts(ctx, 0, RecentSize)
		})
		return nil
	})
	_ = g.Wait()

	for _, err := range errs {
		if errors.Is(err, banksdk.ErrSessionExpired) {
			return nil, err
		}
	}

	d := &Dashboard{}
	for i, part := range []string{"stats", "recent_clients", "recent_accounts"} {
		if errs[i] != nil {
			log.Warn("dashboard call failed, using fallback", "part", part, "error", errs[i])
			d.Degraded = append(d.Degraded, part)
		}
	}

	if clients == nil {
		clients = banksdk.EmptyPage[banksdk.Client]()
	}
	if accounts == nil {
		accounts = banksdk.EmptyPage[banksdk.Account]()
	}
	d.RecentClients = clients.Content
	d.RecentAccounts = accounts.Content

	if stats != nil {
		d.Stats = *stats
		return d, nil
	}

	d.Approximated = true
	d.Stats.TotalClients = clients.TotalElements
	d.Stats.TotalAccounts = accounts.TotalElements
	for _, a := range accounts.Content {
		d.Stats.TotalBalance += a.Balance
		if a.Active {
			d.Stats.ActiveAccounts++
		}
	}
	return d, nil
}

func (s *DashboardService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultDashboardTimeout
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (*T, error)) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
