package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

// Client drives status transitions on the orders service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) Get(ctx context.Context, orderNumber string) (*domain.Order, error) {
	endpoint := fmt.Sprintf("%s/orders/%s", c.baseURL, url.PathEscape(orderNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderNumber, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrOrderNotFound
	default:
		return nil, fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", orderNumber, err)
	}
	return &order, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderNumber string, status domain.OrderStatus, note string) error {
	data, err := json.Marshal(updateStatusRequest{Status: status, Note: note})
	if err != nil {
		return fmt.Errorf("marshal status request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/orders/%s/status", c.baseURL, url.PathEscape(orderNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderNumber, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrOrderNotFound
	case http.StatusConflict:
		return ErrIllegalTransition
	default:
		return fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}
}
