package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// fakeProvider pushes fixed hits, optionally failing or blocking until its context ends.
type fakeProvider struct {
	name     string
	tasks    []task.Task
	minChars int
	list     hit.List
	hits     []hit.Hit
	err      error
	// block makes Search wait for cancellation; lateHits are pushed after that.
	block    func(query string) bool
	lateHits []hit.Hit

	calls   atomic.Int32
	started chan struct{}
}

var _ domain.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) Name() string       { return p.name }
func (p *fakeProvider) Tasks() []task.Task { return p.tasks }
func (p *fakeProvider) MinChars() int      { return p.minChars }

func (p *fakeProvider) Search(ctx context.Context, query string, sink domain.Sink) error {
	p.calls.Add(1)
	if p.started != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
	}
	if p.block != nil && p.block(query) {
		<-ctx.Done()
		if len(p.lateHits) > 0 {
			sink.Push(hit.Relevance, p.lateHits...)
		}
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	list := p.list
	if list == "" {
		list = hit.Relevance
	}
	if len(p.hits) > 0 {
		sink.Push(list, p.hits...)
	}
	for _, t := range p.tasks {
		sink.Done(t)
	}
	return nil
}

// recordingEvents collects events per session.
type recordingEvents struct {
	mu        sync.Mutex
	events    map[string][]aggregate.Event
	forgotten []string
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{events: make(map[string][]aggregate.Event)}
}

func (r *recordingEvents) ObserverFor(id string) aggregate.Observer {
	return aggregate.ObserverFunc(func(e aggregate.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events[id] = append(r.events[id], e)
	})
}

func (r *recordingEvents) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, id)
}

func (r *recordingEvents) count(id string, kind aggregate.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events[id] {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func addr(id string) hit.Hit {
	return hit.Hit{ID: id, Name: "Address " + id, Type: hit.Known(hit.KindAddress)}
}

func topic(id string) hit.Hit {
	return hit.Hit{ID: id, Name: "Topic " + id, Type: hit.Known(hit.KindTopic)}
}

func ids(hits []hit.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}
