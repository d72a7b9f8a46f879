package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Client talks to the inventory service over HTTP. The orders service uses
// it to put stock back when an order is cancelled.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) Release(ctx context.Context, productID string, quantity int) error {
	data, err := json.Marshal(quantityRequest{Quantity: quantity})
	if err != nil {
		return fmt.Errorf("marshal release request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/stock/%s/release", c.baseURL, url.PathEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create release request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("release stock for product %s: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrProductNotFound
	default:
		return fmt.Errorf("inventory service returned status %d for product %s", resp.StatusCode, productID)
	}
}
