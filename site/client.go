// Package site is a thin client for the external moderation API that
// owns infraction and watch records.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"sentinel-bot/utils"
)

// Sentinel errors the lifecycle engine dispatches on.
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("site: record not found")
	// ErrUnknownUser is returned when the site rejects an infraction
	// because the target user has no user record yet.
	ErrUnknownUser = errors.New("site: user unknown to the site")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("site: record already exists")
)

// APIError carries any other non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("site: unexpected status %d: %s", e.Status, e.Body)
}

// Client talks JSON to the site REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a site client. The shared HTTP client already
// carries pooling and timeout defaults.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    utils.GlobalHTTPClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to site failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return classifyError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode site response: %w", err)
		}
	}
	return nil
}

// classifyError maps the anticipated site error shapes onto sentinel
// errors; anything else becomes an APIError.
func classifyError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) == nil {
			if _, ok := fields["user"]; ok {
				return ErrUnknownUser
			}
			if _, ok := fields["non_field_errors"]; ok {
				return ErrConflict
			}
		}
	case http.StatusConflict:
		return ErrConflict
	}
	return &APIError{Status: resp.StatusCode, Body: string(raw)}
}
