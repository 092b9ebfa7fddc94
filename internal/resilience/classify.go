package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kailas-cloud/portalsearch/internal/domain"
)

// StatusError is returned by provider clients for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// ClassifyHTTP retries transport failures, 429 and 5xx. Caller cancellation
// and client rate limiting never count against the breaker.
func ClassifyHTTP(err error) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case errors.Is(err, domain.ErrRateLimited):
		return ErrorClassification{}
	}

	var se *StatusError
	if errors.As(err, &se) {
		retry := se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
		return ErrorClassification{Retryable: retry, RecordFailure: se.StatusCode >= 500}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{RecordFailure: true}
}
