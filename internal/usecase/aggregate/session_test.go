package aggregate

import (
	"reflect"
	"sync"
	"testing"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) lastOf(kind EventKind) *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			e := r.events[i]
			return &e
		}
	}
	return nil
}

func newTestSession(cfg Config) (*Session, *recorder) {
	rec := &recorder{}
	return NewSession(cfg, rec, nil), rec
}

func TestSession_ScenarioRoundRobin(t *testing.T) {
	s, rec := newTestSession(Config{
		Preferred:   []hit.Type{tAddress, tTopic},
		Recommended: 3,
	})
	gen := s.SetQuery("rathaus")
	for _, h := range mkHits("address", tAddress, 2) {
		s.Push(gen, hit.Relevance, "", h)
	}
	for _, h := range mkHits("topic", tTopic, 4) {
		s.Push(gen, hit.Relevance, "", h)
	}

	snap := s.Snapshot()
	if got := ids(snap.Recommended); !reflect.DeepEqual(got, []string{"address#1", "address#2", "topic#1"}) {
		t.Errorf("recommended = %v", got)
	}
	if len(snap.Final) != 6 || len(snap.Groups) != 2 {
		t.Errorf("final=%d groups=%d", len(snap.Final), len(snap.Groups))
	}
	if rec.count(EventRecommendedListChanged) < 6 {
		t.Errorf("expected a pass per push, got %d", rec.count(EventRecommendedListChanged))
	}
}

func TestSession_Idempotent(t *testing.T) {
	s, _ := newTestSession(Config{RandomHits: true, Recommended: 2})
	gen := s.SetQuery("x")
	s.Push(gen, hit.Relevance, "", mkHits("t", tTopic, 5)...)
	s.Push(gen, hit.Relevance, "", mkHits("s", tStreet, 5)...)

	first := s.Rebuild()
	second := s.Rebuild()
	if !reflect.DeepEqual(ids(first.Recommended), ids(second.Recommended)) {
		t.Errorf("recommended changed without new hits: %v vs %v", ids(first.Recommended), ids(second.Recommended))
	}
	if !reflect.DeepEqual(first.Groups, second.Groups) {
		t.Error("groups changed without new hits")
	}
}

func TestSession_InitialNoResults(t *testing.T) {
	s, rec := newTestSession(Config{Tasks: []task.Task{task.Tree}})
	s.ArmInitialSearch("nothing")

	if rec.count(EventNoInitialResults) != 0 {
		t.Fatal("alert fired before task completion")
	}
	s.MarkDone(task.Tree)
	s.MarkDone(task.Tree)

	if n := rec.count(EventNoInitialResults); n != 1 {
		t.Errorf("no-results alert fired %d times, want 1", n)
	}
	e := rec.lastOf(EventNoInitialResults)
	if e.Dismiss != DefaultNoResultsDismiss {
		t.Errorf("dismiss = %v", e.Dismiss)
	}
	if got := s.Snapshot().Recommended; len(got) != 0 {
		t.Errorf("recommended = %v, want empty", ids(got))
	}
	if rec.count(EventInitialSearchFinished) != 1 {
		t.Error("expected exactly one initial_search_finished")
	}
}

func TestSession_InitialGatesRendering(t *testing.T) {
	s, rec := newTestSession(Config{Tasks: task.Expand([]string{"gazetteer", "tree"})})
	gen := s.ArmInitialSearch("elb")
	before := rec.count(EventRecommendedListChanged)

	s.Push(gen, hit.Relevance, "", mkHit("s1", tStreet))
	s.MarkDone(task.GazetteerStreetsOrHouseNumbers)
	s.Push(gen, hit.Relevance, "", mkHit("t1", tTopic))
	s.MarkDone(task.Tree)

	if got := rec.count(EventRecommendedListChanged); got != before {
		t.Fatalf("rendered %d times while pending", got-before)
	}
	if st, rem := s.InitialState(); st != Pending || len(rem) != 1 || rem[0] != task.GazetteerStreetKeys {
		t.Fatalf("state=%s remaining=%v", st, rem)
	}

	s.MarkDone(task.GazetteerStreetKeys)
	if got := rec.count(EventRecommendedListChanged); got != before+1 {
		t.Errorf("expected one pass on finish, got %d", got-before)
	}
	if rec.count(EventAutoSelect) != 0 {
		t.Error("auto select must not fire with two hits")
	}

	// manual searches render on every push
	s.Push(gen, hit.Relevance, "", mkHit("t2", tTopic))
	if got := rec.count(EventRecommendedListChanged); got != before+2 {
		t.Errorf("expected immediate pass after finish, got %d", got-before)
	}
}

func TestSession_AutoSelectSingleHit(t *testing.T) {
	s, rec := newTestSession(Config{Tasks: []task.Task{task.Komoot}})
	gen := s.ArmInitialSearch("Jungfernstieg 1")
	s.Push(gen, hit.Relevance, "", mkHit("only", hit.Known(hit.KindPlace)))
	s.MarkDone(task.Komoot)

	e := rec.lastOf(EventAutoSelect)
	if e == nil || e.Hit.ID != "only" {
		t.Fatalf("auto select = %+v", e)
	}
	if rec.count(EventNoInitialResults) != 0 {
		t.Error("no-results alert must not fire")
	}
}

func TestSession_NoTasksFinishesOnArm(t *testing.T) {
	s, rec := newTestSession(Config{})
	s.ArmInitialSearch("q")
	if rec.count(EventInitialSearchFinished) != 1 || rec.count(EventNoInitialResults) != 1 {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestSession_InitialSearchSkipsClearPass(t *testing.T) {
	s, rec := newTestSession(Config{Tasks: []task.Task{task.Tree}})
	gen := s.SetQuery("alt")
	s.Push(gen, hit.Relevance, "", mkHit("old", tTopic))
	before := len(rec.events)

	s.ArmInitialSearch("altona")
	if n := len(rec.events) - before; n != 0 {
		t.Fatalf("initial search emitted %d events before completion", n)
	}
	s.MarkDone(task.Tree)

	var kinds []EventKind
	for _, e := range rec.events[before:] {
		kinds = append(kinds, e.Kind)
	}
	want := []EventKind{EventInitialSearchFinished, EventRecommendedListChanged, EventNoInitialResults}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("events = %v, want %v", kinds, want)
	}
	if snap := s.Snapshot(); snap.Query != "altona" || len(snap.Final) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSession_StaleGenerationDropped(t *testing.T) {
	s, _ := newTestSession(Config{})
	old := s.SetQuery("ha")
	cur := s.SetQuery("ham")

	if s.Push(old, hit.Relevance, "", mkHit("stale", tTopic)) {
		t.Error("stale push accepted")
	}
	if !s.Push(cur, hit.Relevance, "", mkHit("fresh", tTopic)) {
		t.Error("current push rejected")
	}
	if !s.Push(0, hit.Relevance, "", mkHit("manual", tTopic)) {
		t.Error("generation 0 push rejected")
	}
	if got := ids(s.Snapshot().Final); !reflect.DeepEqual(got, []string{"fresh", "manual"}) {
		t.Errorf("final = %v", got)
	}
}

func TestSession_SetQueryClears(t *testing.T) {
	s, _ := newTestSession(Config{})
	gen := s.SetQuery("a")
	s.Push(gen, hit.Relevance, "", mkHit("1", tTopic))
	s.SetQuery("ab")
	if got := s.Snapshot(); len(got.Final) != 0 || got.Query != "ab" {
		t.Errorf("snapshot after new query = %+v", got)
	}
}

func TestSession_Paste(t *testing.T) {
	s, rec := newTestSession(Config{})
	s.SetQuery("")
	base := rec.count(EventRecommendedListChanged)

	s.Push(0, hit.Relevance, hit.Paste, mkHit("p1", tAddress))
	if rec.lastOf(EventZoomTo) == nil {
		t.Fatal("expected zoom_to for pasted hit")
	}
	if rec.count(EventRecommendedListChanged) != base {
		t.Error("single pasted hit must not rebuild")
	}

	s.Push(0, hit.Relevance, hit.Paste, mkHit("p2", tAddress))
	if rec.count(EventRecommendedListChanged) != base+1 {
		t.Error("second pasted hit must rebuild")
	}
	if rec.count(EventZoomTo) != 2 {
		t.Errorf("zoom_to count = %d", rec.count(EventZoomTo))
	}
}

func TestSession_RemoveRebuilds(t *testing.T) {
	s, _ := newTestSession(Config{})
	gen := s.SetQuery("q")
	s.Push(gen, hit.Relevance, "", hit.Hit{ID: "1", Type: hit.Other("X")}, hit.Hit{ID: "2", Type: hit.Other("Y")})

	f, _ := hit.MatchFields(map[string]string{"type": "X"})
	if n := s.Remove(gen, hit.Relevance, f); n != 1 {
		t.Fatalf("removed %d", n)
	}
	if got := ids(s.Snapshot().Recommended); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("recommended = %v", got)
	}
	if n := s.Remove(gen, hit.Relevance, hit.Filter{}); n != 0 {
		t.Error("zero filter removed hits")
	}
}

func TestSession_ConcurrentProviders(t *testing.T) {
	s, _ := newTestSession(Config{Tasks: task.Expand([]string{"tree", "komoot", "elasticSearch"})})
	gen := s.ArmInitialSearch("park")

	var wg sync.WaitGroup
	for _, tk := range []task.Task{task.Tree, task.Komoot, task.ElasticSearch} {
		wg.Add(1)
		go func(tk task.Task) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s.Push(gen, hit.Relevance, "", mkHit(string(tk)+string(rune('a'+i)), hit.Other(string(tk))))
			}
			s.MarkDone(tk)
		}(tk)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Initial != Finished {
		t.Fatalf("state = %s", snap.Initial)
	}
	if len(snap.Final) != 60 || len(snap.Recommended) != DefaultRecommendedLength {
		t.Errorf("final=%d recommended=%d", len(snap.Final), len(snap.Recommended))
	}
}
