package banksdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListAccounts returns one page of all accounts. Admin only.
func (c *SDKClient) ListAccounts(ctx context.Context, page, size int) (*Page[Account], error) {
	return getJSON[Page[Account]](ctx, c, "/accounts", pageQuery(page, size))
}

// GetAccount returns the account identified by number.
func (c *SDKClient) GetAccount(ctx context.Context, number string) (*Account, error) {
	return getJSON[Account](ctx, c, "/accounts/"+url.PathEscape(number), nil)
}

// AccountsForClient returns every account owned by clientID.
func (c *SDKClient) AccountsForClient(ctx context.Context, clientID int64) ([]Account, error) {
	out, err := getJSON[[]Account](ctx, c, "/accounts/client/"+strconv.FormatInt(clientID, 10), nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// CreateAccount opens an account.
func (c *SDKClient) CreateAccount(ctx context.Context, req AccountRequest) (*Account, error) {
	return sendJSON[Account](ctx, c, http.MethodPost, "/accounts", req, http.StatusCreated)
}

// DeleteAccount removes the account with the given database id.
func (c *SDKClient) DeleteAccount(ctx context.Context, id int64) (*MessageResponse, error) {
	return sendJSON[MessageResponse](ctx, c, http.MethodDelete,
		"/accounts/"+strconv.FormatInt(id, 10), nil, http.StatusOK)
}

// DeactivateAccount marks the account inactive.
func (c *SDKClient) DeactivateAccount(ctx context.Context, id int64) (*MessageResponse, error) {
	return sendJSON[MessageResponse](ctx, c, http.MethodPut,
		"/accounts/"+strconv.FormatInt(id, 10)+"/deactivate", nil, http.StatusOK)
}

func pageQuery(page, size int) url.Values {
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
}
