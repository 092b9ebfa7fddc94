// Package events delivers aggregation events of search sessions to listeners.
package events

import (
	"time"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// Message is the wire form of a session event published to the event bus.
type Message struct {
	Session     string    `json:"session"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	Query       string    `json:"query,omitempty"`
	Generation  uint64    `json:"generation,omitempty"`
	Initial     string    `json:"initial,omitempty"`
	Recommended []hit.Hit `json:"recommended,omitempty"`
	Total       int       `json:"total,omitempty"`
	Hit         *hit.Hit  `json:"hit,omitempty"`
	DismissMS   int64     `json:"dismissMs,omitempty"`
}

// NewMessage converts a session event.
func NewMessage(sessionID string, e aggregate.Event, at time.Time) Message {
	m := Message{Session: sessionID, Kind: string(e.Kind), At: at.UTC(), Hit: e.Hit}
	if e.Snapshot != nil {
		m.Query = e.Snapshot.Query
		m.Generation = e.Snapshot.Generation
		m.Initial = e.Snapshot.Initial.String()
		m.Recommended = e.Snapshot.Recommended
		m.Total = len(e.Snapshot.Final)
	}
	if e.Dismiss > 0 {
		m.DismissMS = e.Dismiss.Milliseconds()
	}
	return m
}
