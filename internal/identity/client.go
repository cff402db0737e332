// Package identity wraps the users service as the authorize capability.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront/internal/orders"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client with a bounded per-call timeout; a timeout is a
// failure of the call, surfaced as orders.ErrUpstreamTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func mapTimeout(err error) error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return orders.ErrUpstreamTimeout
	}
	return err
}

// Authorize resolves a bearer token to a principal.
func (c *Client) Authorize(ctx context.Context, token string) (orders.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorize", nil)
	if err != nil {
		return orders.Principal{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return orders.Principal{}, fmt.Errorf("authorize: %w", mapTimeout(err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var p orders.Principal
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return orders.Principal{}, fmt.Errorf("decode principal: %w", err)
		}
		return p, nil
	case http.StatusUnauthorized:
		return orders.Principal{}, orders.ErrUnauthorized
	default:
		return orders.Principal{}, fmt.Errorf("users service returned status %d", resp.StatusCode)
	}
}

// UserExists reports whether the users service knows the given id.
func (c *Client) UserExists(ctx context.Context, userID int) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d", c.baseURL, userID), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("get user: %w", mapTimeout(err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("users service returned status %d", resp.StatusCode)
	}
}
