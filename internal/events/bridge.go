package events

import (
	"github.com/kailas-cloud/portalsearch/internal/metrics"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// Multi delivers every event to each non-nil observer in order.
func Multi(observers ...aggregate.Observer) aggregate.Observer {
	var out multi
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multi []aggregate.Observer

func (m multi) Notify(e aggregate.Event) {
	for _, o := range m {
		o.Notify(e)
	}
}

// Counting counts events by kind.
func Counting() aggregate.Observer {
	return aggregate.ObserverFunc(func(e aggregate.Event) {
		metrics.AggregationsTotal.WithLabelValues(string(e.Kind)).Inc()
	})
}

// Bridge wires session events into the hub, the optional bus publisher and metrics.
type Bridge struct {
	hub *Hub
	pub *NATSPublisher
}

// NewBridge creates a bridge. pub may be nil.
func NewBridge(hub *Hub, pub *NATSPublisher) *Bridge {
	return &Bridge{hub: hub, pub: pub}
}

// ObserverFor returns the observer of one session.
func (b *Bridge) ObserverFor(sessionID string) aggregate.Observer {
	var bus aggregate.Observer
	if b.pub != nil {
		bus = aggregate.ObserverFunc(func(e aggregate.Event) { b.pub.Publish(sessionID, e) })
	}
	return Multi(
		aggregate.ObserverFunc(func(e aggregate.Event) { b.hub.Publish(sessionID, e) }),
		bus,
		Counting(),
	)
}

// Forget releases the listeners of a closed session.
func (b *Bridge) Forget(sessionID string) {
	b.hub.Forget(sessionID)
}
