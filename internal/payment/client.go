package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Client calls the payment service. Transport failures and 5xx responses
// count against a circuit breaker; declines do not.
type Client struct {
	baseURL    string
	httpClient *http.Client
	charges    *gobreaker.CircuitBreaker[ChargeResult]
	refunds    *gobreaker.CircuitBreaker[RefundResult]
	voids      *gobreaker.CircuitBreaker[VoidResult]
}

type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

func NewClient(baseURL string, httpClient *http.Client, bs BreakerSettings, logger *slog.Logger) *Client {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     bs.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("payment circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrAlreadyRefunded)
			},
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		charges:    gobreaker.NewCircuitBreaker[ChargeResult](settings("payment-charge")),
		refunds:    gobreaker.NewCircuitBreaker[RefundResult](settings("payment-refund")),
		voids:      gobreaker.NewCircuitBreaker[VoidResult](settings("payment-void")),
	}
}

func (c *Client) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	res, err := c.charges.Execute(func() (ChargeResult, error) {
		var out ChargeResult
		status, err := c.post(ctx, "/charges", req, &out)
		if err != nil {
			return ChargeResult{}, err
		}
		switch status {
		case http.StatusOK, http.StatusCreated:
			return out, nil
		case http.StatusPaymentRequired:
			out.Approved = false
			return out, nil
		default:
			return ChargeResult{}, fmt.Errorf("payment service returned status %d", status)
		}
	})
	return res, translateBreakerError(err)
}

func (c *Client) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	res, err := c.refunds.Execute(func() (RefundResult, error) {
		var out RefundResult
		status, err := c.post(ctx, "/refunds", req, &out)
		if err != nil {
			return RefundResult{}, err
		}
		switch status {
		case http.StatusOK, http.StatusCreated:
			return out, nil
		case http.StatusNotFound:
			return RefundResult{}, ErrTransactionNotFound
		case http.StatusConflict:
			return RefundResult{}, ErrAlreadyRefunded
		default:
			return RefundResult{}, fmt.Errorf("payment service returned status %d", status)
		}
	})
	return res, translateBreakerError(err)
}

// Void is idempotent on the gateway side, so it is safe to send for a charge
// whose outcome is unknown.
func (c *Client) Void(ctx context.Context, req VoidRequest) (VoidResult, error) {
	res, err := c.voids.Execute(func() (VoidResult, error) {
		var out VoidResult
		status, err := c.post(ctx, "/voids", req, &out)
		if err != nil {
			return VoidResult{}, err
		}
		switch status {
		case http.StatusOK, http.StatusCreated:
			return out, nil
		default:
			return VoidResult{}, fmt.Errorf("payment service returned status %d", status)
		}
	})
	return res, translateBreakerError(err)
}

func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusInternalServerError {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < http.StatusBadRequest {
			return 0, fmt.Errorf("decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func translateBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
