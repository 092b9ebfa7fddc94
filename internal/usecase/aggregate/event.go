package aggregate

import (
	"time"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

// EventKind names a notification sent to the consumer.
type EventKind string

// Event kinds.
const (
	EventRecommendedListChanged EventKind = "recommended_list_changed"
	EventInitialSearchFinished  EventKind = "initial_search_finished"
	// EventAutoSelect asks the consumer to select the only hit of a finished initial search.
	EventAutoSelect EventKind = "auto_select"
	// EventZoomTo asks the consumer to zoom to a pasted hit right away.
	EventZoomTo           EventKind = "zoom_to"
	EventNoInitialResults EventKind = "no_initial_results"
)

// Event is a consumer notification. Snapshot is set for list changes,
// Hit for auto-select and zoom, Dismiss for the no-results notice.
type Event struct {
	Kind     EventKind
	Snapshot *Snapshot
	Hit      *hit.Hit
	Dismiss  time.Duration
}

// Observer receives session events in emission order.
// Implementations must not call back into the emitting session synchronously.
type Observer interface {
	Notify(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Notify implements Observer.
func (f ObserverFunc) Notify(e Event) { f(e) }

// Snapshot is the result of one aggregation pass. It is never mutated after creation.
type Snapshot struct {
	Query       string
	Generation  uint64
	Version     uint64
	Recommended []hit.Hit
	Final       []hit.Hit
	Groups      []hit.TypeGroup
	Initial     State
}

// Group returns the hits of one type from the last pass.
func (s *Snapshot) Group(t hit.Type) []hit.Hit {
	for _, g := range s.Groups {
		if g.Type == t {
			return g.Hits
		}
	}
	return nil
}
