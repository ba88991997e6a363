package exchange

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestPlaceOrderWithRetry_SucceedsFirstAttempt(t *testing.T) {
	client := NewMockClient(MockConfig{})

	result, err := PlaceOrderWithRetry(context.Background(), client, fastPolicy(), decimal.NewFromInt(100), "BTC-AUD", slog.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, 1, client.OrderCalls)
}

func TestPlaceOrderWithRetry_RecoversFromTransientFailures(t *testing.T) {
	client := NewMockClient(MockConfig{FailOrders: 2})

	result, err := PlaceOrderWithRetry(context.Background(), client, fastPolicy(), decimal.NewFromInt(100), "BTC-AUD", slog.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, 3, client.OrderCalls)
}

func TestPlaceOrderWithRetry_ExhaustsRetryBudget(t *testing.T) {
	// More failures than the budget of 1 + MaxRetries attempts.
	client := NewMockClient(MockConfig{FailOrders: 10})

	result, err := PlaceOrderWithRetry(context.Background(), client, fastPolicy(), decimal.NewFromInt(100), "BTC-AUD", slog.Default())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 4, client.OrderCalls, "budget is the first attempt plus MaxRetries")
	assert.Contains(t, err.Error(), "market order failed after 4 attempts")
}

func TestPlaceOrderWithRetry_PermanentFailureReturnsImmediately(t *testing.T) {
	client := NewMockClient(MockConfig{
		FailOrders: 10,
		OrderError: NewError(ProviderMock, CodeInsufficientFunds, "balance too low", nil),
	})

	result, err := PlaceOrderWithRetry(context.Background(), client, fastPolicy(), decimal.NewFromInt(100), "BTC-AUD", slog.Default())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, client.OrderCalls, "permanent failures must not retry")
	assert.False(t, IsTransient(err))
}

func TestPlaceOrderWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	client := NewMockClient(MockConfig{FailOrders: 10})
	policy := RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: time.Minute,
		MaxBackoff:     time.Minute,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := PlaceOrderWithRetry(ctx, client, policy, decimal.NewFromInt(100), "BTC-AUD", slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, client.OrderCalls)
}
