package portalsearch

import (
	"time"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// Hit is one search result.
type Hit = hit.Hit

// HitType identifies the kind of a hit. Use Type to build one.
type HitType = hit.Type

// TypeGroup holds the hits of one type in display order.
type TypeGroup = hit.TypeGroup

// List selects the hit list a provider pushes to.
type List = hit.List

// Hit lists.
const (
	// Relevance is sorted by type and then by name.
	Relevance = hit.Relevance
	// OriginalOrder keeps the order the provider reported.
	OriginalOrder = hit.OriginalOrder
)

// Task is an initial-search task resolved by a provider.
type Task = task.Task

// Initial-search tasks. A custom provider reuses the task of the source it replaces.
const (
	TaskGazetteerStreetsOrHouseNumbers = task.GazetteerStreetsOrHouseNumbers
	TaskGazetteerStreetKeys            = task.GazetteerStreetKeys
	TaskElasticSearch                  = task.ElasticSearch
	TaskKomoot                         = task.Komoot
	TaskTree                           = task.Tree
	TaskGDI                            = task.GDI
	TaskSemanticTopics                 = task.SemanticTopics
)

// Provider searches one source. Custom providers must report Done for each of
// their tasks or return from Search.
type Provider = domain.Provider

// Sink receives provider output.
type Sink = domain.Sink

// Type resolves a kind key ("address", "topic", ...) to a hit type. Anything
// else becomes a free-form type with that label.
func Type(kindOrLabel string) HitType { return hit.ParseType(kindOrLabel) }

// Point encodes a map coordinate for Hit.Coordinate.
var Point = hit.Point

// EventKind names a session notification.
type EventKind = aggregate.EventKind

// Session event kinds.
const (
	EventRecommendedListChanged = aggregate.EventRecommendedListChanged
	EventInitialSearchFinished  = aggregate.EventInitialSearchFinished
	EventAutoSelect             = aggregate.EventAutoSelect
	EventZoomTo                 = aggregate.EventZoomTo
	EventNoInitialResults       = aggregate.EventNoInitialResults
)

// Event is a session notification.
type Event struct {
	Kind EventKind
	// Recommended and Total are set for list changes.
	Recommended []Hit
	Total       int
	// Hit is set for auto-select and zoom events.
	Hit *Hit
	// Dismiss is how long the no-results notice stays visible.
	Dismiss time.Duration
}

func eventOf(e *aggregate.Event) Event {
	out := Event{Kind: e.Kind, Hit: e.Hit, Dismiss: e.Dismiss}
	if e.Snapshot != nil {
		out.Recommended = e.Snapshot.Recommended
		out.Total = len(e.Snapshot.Final)
	}
	return out
}

// Result is the state of a search after its providers reported.
type Result struct {
	Query       string
	Recommended []Hit
	// Hits holds every hit in final order.
	Hits   []Hit
	Groups []TypeGroup
	// Pending lists providers that have not reported yet.
	Pending []Task
}

func resultOf(snap *aggregate.Snapshot, pending []task.Task) Result {
	return Result{
		Query:       snap.Query,
		Recommended: snap.Recommended,
		Hits:        snap.Final,
		Groups:      snap.Groups,
		Pending:     pending,
	}
}
