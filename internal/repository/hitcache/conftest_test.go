package hitcache

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/portalsearch/internal/db"
	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

// memStore is an in-memory KV store for tests.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

// fakeProvider pushes a fixed result.
type fakeProvider struct {
	hits   []hit.Hit
	err    error
	remove bool
	calls  int
}

func (p *fakeProvider) Name() string       { return "komoot" }
func (p *fakeProvider) Tasks() []task.Task { return []task.Task{task.Komoot} }
func (p *fakeProvider) MinChars() int      { return 3 }

func (p *fakeProvider) Search(_ context.Context, _ string, sink domain.Sink) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	sink.Push(hit.Relevance, p.hits...)
	if p.remove {
		f, _ := hit.MatchFields(map[string]string{"id": "x"})
		sink.Remove(hit.Relevance, f)
	}
	sink.Done(task.Komoot)
	return nil
}

// recordingSink captures everything a provider reports.
type recordingSink struct {
	pushed []hit.Hit
	lists  []hit.List
	done   []task.Task
}

func (s *recordingSink) Push(list hit.List, hits ...hit.Hit) {
	s.lists = append(s.lists, list)
	s.pushed = append(s.pushed, hits...)
}

func (s *recordingSink) Remove(hit.List, hit.Filter) int { return 0 }

func (s *recordingSink) Done(t task.Task) { s.done = append(s.done, t) }
