package portalsearch

import "github.com/kailas-cloud/portalsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrSessionNotFound     = domain.ErrSessionNotFound
	ErrInvalidFilter       = domain.ErrInvalidFilter
	ErrInvalidList         = domain.ErrInvalidList
	ErrInvalidHit          = domain.ErrInvalidHit
	ErrQueryTooShort       = domain.ErrQueryTooShort
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrRateLimited         = domain.ErrRateLimited
)
