package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// DefaultHydrateSize is how many accounts and clients Hydrate loads.
const DefaultHydrateSize = 50

type AccountService struct {
	Bank  *banksdk.SDKClient
	Cache *appstore.Store
}

func (s *AccountService) List(ctx context.Context, page, size int) (*banksdk.Page[banksdk.Account], error) {
	return s.Bank.ListAccounts(ctx, page, size)
}

func (s *AccountService) Get(ctx context.Context, number string) (*banksdk.Account, error) {
	return s.Bank.GetAccount(ctx, number)
}

func (s *AccountService) ForClient(ctx context.Context, clientID int64) ([]banksdk.Account, error) {
	return s.Bank.AccountsForClient(ctx, clientID)
}

// Create opens an account, caches it and asks every view to reload, since
// client account counts and dashboard totals changed too.
func (s *AccountService) Create(ctx context.Context, req banksdk.AccountRequest) (*banksdk.Account, error) {
	account, err := s.Bank.CreateAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Cache.AddAccount(*account)
	s.Cache.TriggerFullRefresh()

	slogx.FromContext(ctx).Info("account opened", "account", account.Number, "client_id", req.ClientID)
	return account, nil
}

func (s *AccountService) Delete(ctx context.Context, id int64) (*banksdk.MessageResponse, error) {
	resp, err := s.Bank.DeleteAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.TriggerFullRefresh()
	return resp, nil
}

func (s *AccountService) Deactivate(ctx context.Context, id int64) (*banksdk.MessageResponse, error) {
	resp, err := s.Bank.DeactivateAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.TriggerFullRefresh()
	return resp, nil
}

// Hydrate loads what the signed-in user can see into the cache: the first
// size accounts and clients for an administrator, their own client record
// and accounts otherwise.
func (s *AccountService) Hydrate(ctx context.Context, size int) error {
	if size <= 0 {
		size = DefaultHydrateSize
	}

	info := s.Bank.UserInfo(ctx)
	if info == nil {
		return ErrNotSignedIn
	}

	if info.Role != banksdk.RoleAdmin {
		me, err := s.Bank.MyProfile(ctx)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		accounts := me.Accounts
		me.Accounts = nil
		s.Cache.Hydrate(accounts, []banksdk.Client{*me})
		return nil
	}

	accounts, err := s.Bank.ListAccounts(ctx, 0, size)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	clients, err := s.Bank.ListClients(ctx, 0, size)
	if err != nil {
		return fmt.Errorf("load clients: %w", err)
	}
	s.Cache.Hydrate(accounts.Content, clients.Content)
	return nil
}
