package site

import (
	"context"
	"net/http"

	"sentinel-bot/model"
)

// CreateUser registers a user record with the site. The engine calls
// this once as a remedial step when infraction creation fails with
// ErrUnknownUser.
func (c *Client) CreateUser(ctx context.Context, user model.SiteUser) error {
	return c.do(ctx, http.MethodPost, "/bot/users", nil, user, nil)
}
