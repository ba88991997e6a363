package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// RetryPolicy bounds order placement retries. Only CreateMarketOrder is
// retried; withdrawals are single-attempt by design.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is 4 total attempts with 500ms doubling backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// PlaceOrderWithRetry places a market order, retrying transient failures
// with exponential backoff. Permanent failures return immediately.
// Exhausting retries returns the last transient error, which the caller
// treats as permanent.
func PlaceOrderWithRetry(ctx context.Context, client Client, policy RetryPolicy, fiatAmount decimal.Decimal, pair string, logger *slog.Logger) (*OrderResult, error) {
	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		result, err := client.CreateMarketOrder(ctx, fiatAmount, pair)
		if err == nil {
			if attempt > 1 {
				logger.Info("Market order succeeded after retry",
					"provider", client.Provider(),
					"attempt", attempt,
					"order_id", result.OrderID,
				)
			}
			return result, nil
		}

		lastErr = err
		if !IsTransient(err) {
			logger.Warn("Market order failed permanently",
				"provider", client.Provider(),
				"attempt", attempt,
				"error", err,
			)
			return nil, err
		}

		if attempt == policy.MaxRetries+1 {
			break
		}

		logger.Warn("Market order failed transiently, backing off",
			"provider", client.Provider(),
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("order retry aborted: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return nil, fmt.Errorf("market order failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
}
