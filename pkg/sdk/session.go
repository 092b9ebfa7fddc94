package portalsearch

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

// Session is one search bar. Methods fail with ErrSessionNotFound after Close
// or idle eviction.
type Session struct {
	id string
	c  *Client
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetQuery starts a search for query and supersedes the running one.
func (s *Session) SetQuery(ctx context.Context, query string) (err error) {
	done := s.c.obs.track("set_query", "session", s.id)
	defer func() { done(err) }()

	_, err = s.c.sessions.Search(ctx, s.id, query)
	return err
}

// Wait blocks until the running search finished and returns its result.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	v, err := s.c.sessions.Await(ctx, s.id)
	if err != nil {
		return Result{}, err
	}
	return resultOf(&v.Snapshot, v.Pending), nil
}

// Result returns the current state without waiting.
func (s *Session) Result(ctx context.Context) (Result, error) {
	v, err := s.c.sessions.Get(ctx, s.id)
	if err != nil {
		return Result{}, err
	}
	return resultOf(&v.Snapshot, v.Pending), nil
}

// Push adds hits found outside the session's providers.
func (s *Session) Push(ctx context.Context, list List, hits ...Hit) (Result, error) {
	return s.push(ctx, list, "", hits)
}

// Paste adds a hit chosen from outside the list, such as a pasted address.
// The session emits EventZoomTo for it.
func (s *Session) Paste(ctx context.Context, h Hit) (Result, error) {
	return s.push(ctx, Relevance, hit.Paste, []Hit{h})
}

func (s *Session) push(ctx context.Context, list List, origin hit.Origin, hits []Hit) (_ Result, err error) {
	done := s.c.obs.track("push", "session", s.id, "hits", len(hits))
	defer func() { done(err) }()

	v, err := s.c.sessions.PushHits(ctx, s.id, list, origin, hits)
	if err != nil {
		return Result{}, err
	}
	return resultOf(&v.Snapshot, v.Pending), nil
}

// Remove drops the hits of list whose fields all match. Keys are id, name,
// type or any extra attribute.
func (s *Session) Remove(ctx context.Context, list List, fields map[string]string) (n int, err error) {
	done := s.c.obs.track("remove", "session", s.id)
	defer func() { done(err) }()

	f, err := hit.MatchFields(fields)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return s.c.sessions.RemoveHits(ctx, s.id, list, f)
}

// Groups returns the hits grouped by type, each group cut to limit (0 keeps all).
// A non-empty typ (kind key or label) selects one group.
func (s *Session) Groups(ctx context.Context, typ string, limit int) ([]TypeGroup, error) {
	var only *hit.Type
	if typ != "" {
		t := s.c.labels.Resolve(typ)
		only = &t
	}
	return s.c.sessions.Groups(ctx, s.id, only, limit)
}

// Events streams session notifications until stop is called or the session
// closes. Events are dropped while the receiver lags behind.
func (s *Session) Events() (events <-chan Event, stop func()) {
	id, src := s.c.hub.Subscribe(s.id)
	out := make(chan Event)
	quit := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(quit)
			s.c.hub.Unsubscribe(s.id, id)
		})
	}
	go func() {
		defer close(out)
		for e := range src {
			select {
			case out <- eventOf(&e):
			case <-quit:
				return
			}
		}
	}()
	return out, stop
}

// Close ends the session and closes its event streams.
func (s *Session) Close(ctx context.Context) error {
	return s.c.sessions.Close(ctx, s.id)
}
