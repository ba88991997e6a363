package exchange

import (
	"errors"
	"fmt"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
)

// ErrorCode classifies exchange failures for retry decisions and failure
// records.
type ErrorCode string

const (
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeOrderRejected     ErrorCode = "ORDER_REJECTED"
	CodePriceUnavailable  ErrorCode = "PRICE_UNAVAILABLE"
	CodeNetworkError      ErrorCode = "NETWORK_ERROR"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeUnknown           ErrorCode = "UNKNOWN"
)

// Error is the typed failure every Client implementation returns. It
// carries enough detail for a ProcessingFailure record to be actionable:
// the provider, the upstream error text, and the classification.
type Error struct {
	Provider string
	Code     ErrorCode
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the call can plausibly succeed.
// Network timeouts, connection resets, rate limits, and missing prices
// retry; everything else is permanent. Unknown errors are deliberately
// permanent: retrying an order whose first outcome is unknown risks a
// duplicate fill.
func (e *Error) Transient() bool {
	switch e.Code {
	case CodeNetworkError, CodeRateLimited, CodePriceUnavailable:
		return true
	default:
		return false
	}
}

// Category maps the error code onto the operator-facing failure taxonomy.
func (e *Error) Category() shared.FailureCategory {
	switch e.Code {
	case CodeInsufficientFunds:
		return shared.FailureCategoryInsufficientFunds
	case CodeOrderRejected:
		return shared.FailureCategoryOrderRejected
	case CodePriceUnavailable:
		return shared.FailureCategoryPriceUnavailable
	case CodeNetworkError, CodeRateLimited:
		return shared.FailureCategoryNetworkError
	default:
		return shared.FailureCategoryUnknown
	}
}

// NewError builds a typed exchange error wrapping the upstream cause.
func NewError(provider string, code ErrorCode, message string, err error) *Error {
	return &Error{
		Provider: provider,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

// IsTransient reports whether err is a transient exchange error.
func IsTransient(err error) bool {
	var exchErr *Error
	if errors.As(err, &exchErr) {
		return exchErr.Transient()
	}
	return false
}

// CategoryOf extracts the failure category from err, defaulting to UNKNOWN
// for errors that did not originate in an exchange client.
func CategoryOf(err error) shared.FailureCategory {
	var exchErr *Error
	if errors.As(err, &exchErr) {
		return exchErr.Category()
	}
	return shared.FailureCategoryUnknown
}

// ErrUnknownProvider indicates the factory has no client registered for a
// rule's exchange provider identifier
type ErrUnknownProvider struct {
	Provider string
}

func (e ErrUnknownProvider) Error() string {
	return "unknown exchange provider: " + e.Provider
}
