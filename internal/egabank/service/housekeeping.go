package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// DefaultHousekeepingInterval is how often a long-running session resyncs
// its cache with the server.
const DefaultHousekeepingInterval = 5 * time.Minute

// HousekeepingService keeps the cache of a long-running session honest. On
// every tick it reloads the cache from the server while a session exists,
// and empties it once the credentials are gone.
type HousekeepingService struct {
	Bank     *banksdk.SDKClient
	Cache    *appstore.Store
	Accounts *AccountService
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. If interval is 0 or
// negative, DefaultHousekeepingInterval is used.
func NewHousekeepingService(
	bank *banksdk.SDKClient,
	cache *appstore.Store,
	accounts *AccountService,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	if logger == nil {
		logger = slogx.Discard()
	}

	return &HousekeepingService{
		Bank:     bank,
		Cache:    cache,
		Accounts: accounts,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker and waits for an in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one housekeeping pass.
func (s *HousekeepingService) Sweep() {
	ctx, cancel := context.WithTimeout(slogx.WithContext(context.Background(), s.Logger), banksdk.DefaultTimeout)
	defer cancel()

	if !s.Bank.HasRefreshToken(ctx) {
		if len(s.Cache.Accounts()) > 0 || len(s.Cache.Clients()) > 0 {
			s.Logger.Info("no session, clearing cache")
			s.Cache.Reset()
		}
		return
	}

	if err := s.Accounts.Hydrate(ctx, DefaultHydrateSize); err != nil {
		s.Logger.Warn("cache resync failed", "error", err)
		return
	}
	s.Logger.Debug("cache resynced", "accounts", len(s.Cache.Accounts()), "clients", len(s.Cache.Clients()))
}
