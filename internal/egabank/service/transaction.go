package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// CounterTransactions counts transactions completed in this session.
const CounterTransactions = "transactions"

// MinAccountNumberLength is the shortest input worth looking up as a
// transfer target.
const MinAccountNumberLength = 10

var (
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrSameAccount    = errors.New("source and destination accounts must differ")
	ErrTargetTooShort = errors.New("account number too short")
	ErrTargetInactive = errors.New("destination account is inactive")
	ErrInvalidPeriod  = errors.New("start date must not be after end date")
)

// TransactionService moves money and keeps the cache in step with the
// balances the server reports.
type TransactionService struct {
	Bank  *banksdk.SDKClient
	Cache *appstore.Store

	lookup Searcher[*banksdk.Account]
}

// Deposit credits amount to number.
func (s *TransactionService) Deposit(ctx context.Context, number string, amount float64, description string) (*banksdk.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.Bank.Deposit(ctx, number, banksdk.OperationRequest{Amount: amount, Description: description})
	if err != nil {
		return nil, err
	}
	s.settle(ctx, tx, number)
	return tx, nil
}

// Withdraw debits amount from number.
func (s *TransactionService) Withdraw(ctx context.Context, number string, amount float64, description string) (*banksdk.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.Bank.Withdraw(ctx, number, banksdk.OperationRequest{Amount: amount, Description: description})
	if err != nil {
		return nil, err
	}
	s.settle(ctx, tx, number)
	return tx, nil
}

// Transfer moves req.Amount between two accounts.
func (s *TransactionService) Transfer(ctx context.Context, req banksdk.TransferRequest) (*banksdk.Transaction, error) {
	req.Source = strings.TrimSpace(req.Source)
	req.Destination = strings.TrimSpace(req.Destination)
	switch {
	case req.Amount <= 0:
		return nil, ErrInvalidAmount
	case req.Source == req.Destination:
		return nil, ErrSameAccount
	case len(req.Destination) < MinAccountNumberLength:
		return nil, ErrTargetTooShort
	}

	tx, err := s.Bank.Transfer(ctx, req)
	if err != nil {
		return nil, err
	}

	// Both sides changed. Patch what the server reported and reload when
	// the destination balance is unknown.
	switch {
	case tx.BalanceAfter != nil && tx.DestinationBalanceAfter != nil:
		s.Cache.UpdateBalance(req.Source, *tx.BalanceAfter)
		s.Cache.UpdateBalance(req.Destination, *tx.DestinationBalanceAfter)
	case tx.BalanceAfter != nil:
		s.Cache.UpdateBalance(req.Source, *tx.BalanceAfter)
		s.Cache.TriggerFullRefresh()
	default:
		s.Cache.TriggerFullRefresh()
	}
	s.Cache.IncrementCounter(CounterTransactions)

	slogx.FromContext(ctx).Info("transfer completed",
		"source", req.Source,
		"destination", req.Destination,
		"amount", req.Amount,
	)
	return tx, nil
}

// settle reconciles the cache after a deposit or withdrawal.
func (s *TransactionService) settle(ctx context.Context, tx *banksdk.Transaction, number string) {
	if tx.AccountNumber != "" {
		number = tx.AccountNumber
	}
	if tx.BalanceAfter != nil {
		s.Cache.UpdateBalance(number, *tx.BalanceAfter)
	} else {
		s.Cache.TriggerFullRefresh()
	}
	s.Cache.IncrementCounter(CounterTransactions)

	slogx.FromContext(ctx).Info("transaction completed",
		"type", tx.Type,
		"account", number,
		"amount", tx.Amount,
	)
}

// LookupTarget resolves the destination of a transfer as it is typed. Only
// the latest lookup returns a result; earlier ones fail with ErrSuperseded.
// An inactive account is returned together with ErrTargetInactive.
func (s *TransactionService) LookupTarget(ctx context.Context, source, target string) (*banksdk.Account, error) {
	target = strings.TrimSpace(target)
	if len(target) < MinAccountNumberLength {
		return nil, ErrTargetTooShort
	}
	if target == source {
		return nil, ErrSameAccount
	}

	account, err := s.lookup.Do(ctx, target, func(ctx context.Context, number string) (*banksdk.Account, error) {
		return s.Bank.GetAccount(ctx, number)
	})
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return account, ErrTargetInactive
	}
	return account, nil
}

// History returns the transactions of number between from and to.
func (s *TransactionService) History(ctx context.Context, number string, from, to time.Time) ([]banksdk.Transaction, error) {
	if from.After(to) {
		return nil, ErrInvalidPeriod
	}
	return s.Bank.History(ctx, number, from, to)
}

// ForAccount returns every transaction of number.
func (s *TransactionService) ForAccount(ctx context.Context, number string) ([]banksdk.Transaction, error) {
	return s.Bank.AccountTransactions(ctx, number)
}

// Mine returns the transactions of the signed-in client.
func (s *TransactionService) Mine(ctx context.Context) ([]banksdk.Transaction, error) {
	return s.Bank.MyTransactions(ctx)
}

// All returns every transaction. Admin only.
func (s *TransactionService) All(ctx context.Context) ([]banksdk.Transaction, error) {
	return s.Bank.AllTransactions(ctx)
}
