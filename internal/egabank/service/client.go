package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// ClientService manages client records. Writes are mirrored into the cache.
type ClientService struct {
	Bank  *banksdk.SDKClient
	Cache *appstore.Store

	search Searcher[*banksdk.Page[banksdk.Client]]
}

// NewClientService returns a ClientService whose searches answer a repeated
// query from memory until the next write.
func NewClientService(bank *banksdk.SDKClient, cache *appstore.Store) *ClientService {
	s := &ClientService{Bank: bank, Cache: cache}
	s.search.Distinct = true
	return s
}

func (s *ClientService) List(ctx context.Context, page, size int) (*banksdk.Page[banksdk.Client], error) {
	return s.Bank.ListClients(ctx, page, size)
}

// Search matches q against names and email. Concurrent searches follow
// latest-wins: an older search fails with ErrSuperseded.
func (s *ClientService) Search(ctx context.Context, q string, page, size int) (*banksdk.Page[banksdk.Client], error) {
	q = strings.TrimSpace(q)
	key := fmt.Sprintf("%d/%d/%s", page, size, q)
	return s.search.Do(ctx, key, func(ctx context.Context, _ string) (*banksdk.Page[banksdk.Client], error) {
		return s.Bank.SearchClients(ctx, q, page, size)
	})
}

func (s *ClientService) Get(ctx context.Context, id int64) (*banksdk.Client, error) {
	return s.Bank.GetClient(ctx, id)
}

// Details returns the client with its accounts.
func (s *ClientService) Details(ctx context.Context, id int64) (*banksdk.Client, error) {
	return s.Bank.ClientDetails(ctx, id)
}

// Me returns the client record of the signed-in user.
func (s *ClientService) Me(ctx context.Context) (*banksdk.Client, error) {
	return s.Bank.MyProfile(ctx)
}

func (s *ClientService) UpdateProfile(ctx context.Context, req banksdk.ProfileUpdateRequest) (*banksdk.Client, error) {
	c, err := s.Bank.UpdateMyProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Cache.UpdateClient(withoutAccounts(*c))
	return c, nil
}

func (s *ClientService) Create(ctx context.Context, req banksdk.ClientRequest) (*banksdk.Client, error) {
	c, err := s.Bank.CreateClient(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Cache.AddClient(withoutAccounts(*c))
	s.search.Reset()

	slogx.FromContext(ctx).Info("client created", "client_id", c.ID)
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, id int64, req banksdk.ClientRequest) (*banksdk.Client, error) {
	c, err := s.Bank.UpdateClient(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.Cache.UpdateClient(withoutAccounts(*c))
	s.search.Reset()
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, id int64) (*banksdk.MessageResponse, error) {
	resp, err := s.Bank.DeleteClient(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.RemoveClient(id)
	s.search.Reset()

	slogx.FromContext(ctx).Info("client deleted", "client_id", id)
	return resp, nil
}

// The cache holds accounts separately.
func withoutAccounts(c banksdk.Client) banksdk.Client {
	c.Accounts = nil
	return c
}
