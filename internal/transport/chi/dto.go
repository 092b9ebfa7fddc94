package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

// ErrorCode is the machine-readable error kind of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeSessionNotFound     ErrorCode = "session_not_found"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeQueryTooShort       ErrorCode = "query_too_short"
	CodeRateLimited         ErrorCode = "rate_limited"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeNotImplemented      ErrorCode = "not_implemented"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HitResource is a hit as exchanged with the portal. Type accepts a kind key or a
// localized label on input; Label carries the localized label on output.
type HitResource struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Label        string            `json:"label,omitempty"`
	Coordinate   json.RawMessage   `json:"coordinate,omitempty"`
	TriggerEvent *hit.TriggerEvent `json:"triggerEvent,omitempty"`
	Extra        map[string]any    `json:"extra,omitempty"`
}

// SessionResource is the state of a session.
type SessionResource struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	Generation  uint64        `json:"generation"`
	Initial     string        `json:"initialSearch"`
	Pending     []string      `json:"pendingTasks,omitempty"`
	Recommended []HitResource `json:"recommended"`
	Total       int           `json:"total"`
}

// GroupResource is one type group of the show-all view.
type GroupResource struct {
	Type  string        `json:"type"`
	Label string        `json:"label"`
	Count int           `json:"count"`
	Hits  []HitResource `json:"hits"`
}

// GroupsResponse is the body of GET /sessions/{id}/groups.
type GroupsResponse struct {
	Groups []GroupResource `json:"groups"`
}

// EventResource is one message on the session event stream. Recommended is an
// array for list events, empty when the list was cleared, and null otherwise.
type EventResource struct {
	Kind        string        `json:"kind"`
	Query       string        `json:"query,omitempty"`
	Generation  uint64        `json:"generation,omitempty"`
	Initial     string        `json:"initialSearch,omitempty"`
	Recommended []HitResource `json:"recommended"`
	Total       int           `json:"total,omitempty"`
	Hit         *HitResource  `json:"hit,omitempty"`
	DismissMS   int64         `json:"dismissMs,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Query string `json:"query"`
}

// SetQueryRequest is the body of PUT /sessions/{id}/query.
type SetQueryRequest struct {
	Query string `json:"query"`
}

// PushHitsRequest is the body of POST /sessions/{id}/hits.
type PushHitsRequest struct {
	List   string        `json:"list"`
	Origin string        `json:"origin"`
	Hits   []HitResource `json:"hits"`
}

// RemoveHitsResponse is the body of DELETE /sessions/{id}/hits.
type RemoveHitsResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
