package topics

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
)

const services = `
layers:
  - id: "453"
    name: Bus stops
    folder: Transport/Public transport
    keywords: [HVV]
  - id: "454"
    name: Bus lanes
    folder: Transport/Roads
  - id: "1711"
    name: Hospitals
    folder: Health
  - id: "2128"
    name: Rail network
    folder: Transport
`

func testCatalog(t *testing.T) *catalog.Repo {
	t.Helper()
	c, err := catalog.Parse([]byte(services))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return catalog.NewStatic(c)
}

// recordingSink captures provider output.
type recordingSink struct {
	mu   sync.Mutex
	hits []hit.Hit
	done []task.Task
}

func (s *recordingSink) Push(_ hit.List, hits ...hit.Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, hits...)
}

func (s *recordingSink) Remove(hit.List, hit.Filter) int { return 0 }

func (s *recordingSink) Done(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = append(s.done, t)
}

func (s *recordingSink) names() []string {
	out := make([]string, len(s.hits))
	for i, h := range s.hits {
		out[i] = h.Name
	}
	return out
}

// keywordEmbedder maps text onto a 3-dimensional space: bus, health, rail.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) (domain.Vector, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	t := strings.ToLower(text)
	v := domain.Vector{0, 0, 0}
	if strings.Contains(t, "bus") {
		v[0] = 1
	}
	if strings.Contains(t, "hospital") || strings.Contains(t, "health") || strings.Contains(t, "doctor") {
		v[1] = 1
	}
	if strings.Contains(t, "rail") || strings.Contains(t, "train") {
		v[2] = 1
	}
	return v, nil
}
