package checkout

import (
	"fmt"
	"os"
	"time"

	"github.com/joao-fontenele/marketplace-checkout/internal/pricing"
)

const (
	defaultPaymentTimeout      = 10 * time.Second
	defaultCompensationTimeout = 30 * time.Second
)

type Config struct {
	Policy pricing.Policy
	// PaymentTimeout bounds a single charge call. Expiry counts as a failed
	// payment.
	PaymentTimeout      time.Duration
	CompensationTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Policy:              pricing.DefaultPolicy(),
		PaymentTimeout:      defaultPaymentTimeout,
		CompensationTimeout: defaultCompensationTimeout,
	}
}

// ConfigFromEnv reads PAYMENT_TIMEOUT and COMPENSATION_TIMEOUT as Go
// durations on top of the pricing policy environment.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	policy, err := pricing.PolicyFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Policy = policy

	if v := os.Getenv("PAYMENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid PAYMENT_TIMEOUT %q", v)
		}
		cfg.PaymentTimeout = d
	}

	if v := os.Getenv("COMPENSATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid COMPENSATION_TIMEOUT %q", v)
		}
		cfg.CompensationTimeout = d
	}

	return cfg, nil
}
