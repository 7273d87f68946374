package service

import (
	"context"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
)

// UserService handles registrations waiting for an administrator.
type UserService struct {
	Bank *banksdk.SDKClient
}

func (s *UserService) Pending(ctx context.Context) ([]banksdk.PendingUser, error) {
	return s.Bank.PendingUsers(ctx)
}

func (s *UserService) Activate(ctx context.Context, id int64) (*banksdk.MessageResponse, error) {
	return s.Bank.ActivateUser(ctx, id)
}

func (s *UserService) Deactivate(ctx context.Context, id int64) (*banksdk.MessageResponse, error) {
	return s.Bank.DeactivateUser(ctx, id)
}
