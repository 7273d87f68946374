package banksdk

import (
	"context"
	"net/http"
	"strconv"
)

// PendingUsers lists registrations waiting for activation. Admin only.
func (c *SDKClient) PendingUsers(ctx context.Context) ([]PendingUser, error) {
	out, err := getJSON[[]PendingUser](ctx, c, "/users/pending", nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *SDKClient) ActivateUser(ctx context.Context, id int64) (*MessageResponse, error) {
	return sendJSON[MessageResponse](ctx, c, http.MethodPut,
		"/users/"+strconv.FormatInt(id, 10)+"/activate", nil, http.StatusOK)
}

func (c *SDKClient) DeactivateUser(ctx context.Context, id int64) (*MessageResponse, error) {
	return sendJSON[MessageResponse](ctx, c, http.MethodPut,
		"/users/"+strconv.FormatInt(id, 10)+"/deactivate", nil, http.StatusOK)
}
