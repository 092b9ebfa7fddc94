package session

import (
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// EventSink builds the consumer-facing observer of a session and releases it on close.
type EventSink interface {
	ObserverFor(sessionID string) aggregate.Observer
	Forget(sessionID string)
}
