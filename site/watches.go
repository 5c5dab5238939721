package site

import (
	"context"
	"net/http"

	"sentinel-bot/model"
)

// ListWatches returns every active watch entry.
func (c *Client) ListWatches(ctx context.Context) ([]model.WatchEntry, error) {
	var entries []model.WatchEntry
	if err := c.do(ctx, http.MethodGet, "/bot/watches", nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateWatch adds a watch entry for a user. Returns ErrConflict if the
// user is already watched.
func (c *Client) CreateWatch(ctx context.Context, entry model.WatchEntry) error {
	return c.do(ctx, http.MethodPost, "/bot/watches", nil, entry, nil)
}

// DeleteWatch removes the watch entry for a user. Returns ErrNotFound
// if the user is not watched.
func (c *Client) DeleteWatch(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/bot/watches/"+userID, nil, nil, nil)
}
