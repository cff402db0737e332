// Package stock wraps the inventory service as the reserve/release
// capability. Reserve is all-or-nothing per call: the inventory service
// either reserves every item in one transaction or changes nothing.
package stock

import (
	"bytes"
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

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type lineItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type reservationRequest struct {
	OrderID string     `json:"order_id"`
	Items   []lineItem `json:"items"`
}

func toLineItems(items []orders.Item) []lineItem {
	out := make([]lineItem, 0, len(items))
	for _, it := range items {
		out = append(out, lineItem{SKU: it.SKU, Qty: it.Qty})
	}
	return out
}

func mapTimeout(err error) error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return orders.ErrUpstreamTimeout
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, body reservationRequest) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTimeout(err)
	}
	return resp, nil
}

// Reserve reserves every item for the order, or nothing.
func (c *Client) Reserve(ctx context.Context, orderID string, items []orders.Item) error {
	resp, err := c.post(ctx, "/reserve", reservationRequest{OrderID: orderID, Items: toLineItems(items)})
	if err != nil {
		return fmt.Errorf("reserve: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return orders.ErrInsufficientInventory
	default:
		return fmt.Errorf("inventory service returned status %d", resp.StatusCode)
	}
}

// Release returns the reserved quantities for the order. A failed release is
// never silently ignored; the caller treats it as a consistency fault.
func (c *Client) Release(ctx context.Context, orderID string, items []orders.Item) error {
	resp, err := c.post(ctx, "/release", reservationRequest{OrderID: orderID, Items: toLineItems(items)})
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inventory service returned status %d", resp.StatusCode)
	}
	return nil
}
