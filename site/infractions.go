package site

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sentinel-bot/model"
)

// InfractionParams is the payload for creating an infraction record.
type InfractionParams struct {
	Type      model.InfractionType `json:"type"`
	UserID    string               `json:"user"`
	ActorID   string               `json:"actor"`
	GuildID   string               `json:"guild"`
	Reason    string               `json:"reason"`
	Hidden    bool                 `json:"hidden"`
	Active    bool                 `json:"active"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	DMSent    *bool                `json:"dm_sent,omitempty"`
	PurgeDays int                  `json:"purge_days,omitempty"`
}

// InfractionFilter narrows ListInfractions. Zero values mean "no
// constraint" except Active, which is always applied.
type InfractionFilter struct {
	Active  bool
	Types   []model.InfractionType
	UserID  string
	Expires bool // only records with a non-null expires_at
	// OrderByExpiry asks the site to sort ascending by expires_at.
	OrderByExpiry bool
	Limit         int
}

// InfractionPatch is a partial update; nil fields are left untouched.
type InfractionPatch struct {
	Active      *bool      `json:"active,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	DMSent      *bool      `json:"dm_sent,omitempty"`
	LastApplied *time.Time `json:"last_applied,omitempty"`
}

// CreateInfraction persists a new infraction and returns it with the
// site-assigned ID. Returns ErrUnknownUser if the target has no user
// record and ErrConflict on a unique-constraint violation.
func (c *Client) CreateInfraction(ctx context.Context, params InfractionParams) (*model.Infraction, error) {
	var inf model.Infraction
	if err := c.do(ctx, http.MethodPost, "/bot/infractions", nil, params, &inf); err != nil {
		return nil, err
	}
	return &inf, nil
}

// GetInfraction fetches a single record by ID.
func (c *Client) GetInfraction(ctx context.Context, id int64) (*model.Infraction, error) {
	var inf model.Infraction
	path := fmt.Sprintf("/bot/infractions/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &inf); err != nil {
		return nil, err
	}
	return &inf, nil
}

// ListInfractions returns records matching the filter.
func (c *Client) ListInfractions(ctx context.Context, filter InfractionFilter) ([]model.Infraction, error) {
	query := url.Values{}
	query.Set("active", strconv.FormatBool(filter.Active))
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		query.Set("types", strings.Join(types, ","))
	}
	if filter.UserID != "" {
		query.Set("user__id", filter.UserID)
	}
	if filter.Expires {
		query.Set("permanent", "false")
	}
	if filter.OrderByExpiry {
		query.Set("ordering", "expires_at")
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var infractions []model.Infraction
	if err := c.do(ctx, http.MethodGet, "/bot/infractions", query, nil, &infractions); err != nil {
		return nil, err
	}
	return infractions, nil
}

// PatchInfraction partially updates a record and returns the result.
func (c *Client) PatchInfraction(ctx context.Context, id int64, patch InfractionPatch) (*model.Infraction, error) {
	var inf model.Infraction
	path := fmt.Sprintf("/bot/infractions/%d", id)
	if err := c.do(ctx, http.MethodPatch, path, nil, patch, &inf); err != nil {
		return nil, err
	}
	return &inf, nil
}

// DeleteInfraction removes a record outright. Only used to roll back a
// record whose platform-side action never took effect.
func (c *Client) DeleteInfraction(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/bot/infractions/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
