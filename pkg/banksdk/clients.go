package banksdk

import (
	"context"
	"net/http"
	"strconv"
)

func clientPath(id int64) string {
	return "/clients/" + strconv.FormatInt(id, 10)
}

// ListClients returns one page of clients. Admin only.
func (c *SDKClient) ListClients(ctx context.Context, page, size int) (*Page[Client], error) {
	return getJSON[Page[Client]](ctx, c, "/clients", pageQuery(page, size))
}

// SearchClients matches q against last name, first name and email.
func (c *SDKClient) SearchClients(ctx context.Context, q string, page, size int) (*Page[Client], error) {
	query := pageQuery(page, size)
	query.Set("q", q)
	return getJSON[Page[Client]](ctx, c, "/clients/search", query)
}

func (c *SDKClient) GetClient(ctx context.Context, id int64) (*Client, error) {
	return getJSON[Client](ctx, c, clientPath(id), nil)
}

// ClientDetails returns the client with its accounts.
func (c *SDKClient) ClientDetails(ctx context.Context, id int64) (*Client, error) {
	return getJSON[Client](ctx, c, clientPath(id)+"/details", nil)
}

// MyProfile returns the client record of the signed-in user, accounts included.
func (c *SDKClient) MyProfile(ctx context.Context) (*Client, error) {
	return getJSON[Client](ctx, c, "/clients/me", nil)
}

// UpdateMyProfile changes the contact details of the signed-in user.
func (c *SDKClient) UpdateMyProfile(ctx context.Context, req ProfileUpdateRequest) (*Client, error) {
	return sendJSON[Client](ctx, c, http.MethodPut, "/clients/me", req, http.StatusOK)
}

func (c *SDKClient) CreateClient(ctx context.Context, req ClientRequest) (*Client, error) {
	return sendJSON[Client](ctx, c, http.MethodPost, "/clients", req, http.StatusCreated)
}

func (c *SDKClient) UpdateClient(ctx context.Context, id int64, req ClientRequest) (*Client, error) {
	return sendJSON[Client](ctx, c, http.MethodPut, clientPath(id), req, http.StatusOK)
}

func (c *SDKClient) DeleteClient(ctx context.Context, id int64) (*MessageResponse, error) {
	return sendJSON[MessageResponse](ctx, c, http.MethodDelete, clientPath(id), nil, http.StatusOK)
}
