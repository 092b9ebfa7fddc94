package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound signals a missing or evicted search session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidFilter signals a hit filter without usable criteria.
	ErrInvalidFilter = errors.New("invalid hit filter")
	// ErrInvalidList signals an unknown hit list name.
	ErrInvalidList = errors.New("invalid hit list")
	// ErrInvalidHit signals a pushed hit without id or type.
	ErrInvalidHit = errors.New("invalid hit")
	// ErrQueryTooShort signals a query below a provider's minimum length.
	ErrQueryTooShort = errors.New("query too short")
	// ErrProviderUnavailable signals a provider that failed or whose circuit is open.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrRateLimited signals a provider request rejected by the local rate limiter.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// ProviderError wraps a provider failure with the provider name.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProviderUnavailable, e.Err} }

// NewProviderError wraps err as a failure of the named provider.
func NewProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}
