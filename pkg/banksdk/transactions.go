package banksdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// DateLayout is the wire format of the debut and fin query parameters.
const DateLayout = "2006-01-02"

// Deposit credits amount to the account.
func (c *SDKClient) Deposit(ctx context.Context, number string, req OperationRequest) (*Transaction, error) {
	return sendJSON[Transaction](ctx, c, http.MethodPost,
		"/transactions/"+url.PathEscape(number)+"/deposit", req, http.StatusCreated)
}

// Withdraw debits amount from the account.
func (c *SDKClient) Withdraw(ctx context.Context, number string, req OperationRequest) (*Transaction, error) {
	return sendJSON[Transaction](ctx, c, http.MethodPost,
		"/transactions/"+url.PathEscape(number)+"/withdraw", req, http.StatusCreated)
}

func (c *SDKClient) Transfer(ctx context.Context, req TransferRequest) (*Transaction, error) {
	return sendJSON[Transaction](ctx, c, http.MethodPost, "/transactions/transfer", req, http.StatusCreated)
}

// AllTransactions returns every transaction of every account. Admin only.
func (c *SDKClient) AllTransactions(ctx context.Context) ([]Transaction, error) {
	return c.transactionList(ctx, "/transactions", nil)
}

// MyTransactions returns the transactions of the signed-in client.
func (c *SDKClient) MyTransactions(ctx context.Context) ([]Transaction, error) {
	return c.transactionList(ctx, "/transactions/me", nil)
}

// AccountTransactions returns every transaction of one account.
func (c *SDKClient) AccountTransactions(ctx context.Context, number string) ([]Transaction, error) {
	return c.transactionList(ctx, "/transactions/"+url.PathEscape(number), nil)
}

// History returns the transactions of one account between from and to,
// both days inclusive.
func (c *SDKClient) History(ctx context.Context, number string, from, to time.Time) ([]Transaction, error) {
	return c.transactionList(ctx, "/transactions/"+url.PathEscape(number)+"/history", dateRange(from, to))
}

func (c *SDKClient) transactionList(ctx context.Context, path string, query url.Values) ([]Transaction, error) {
	out, err := getJSON[[]Transaction](ctx, c, path, query)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func dateRange(from, to time.Time) url.Values {
	return url.Values{
		"debut": {from.Format(DateLayout)},
		"fin":   {to.Format(DateLayout)},
	}
}
