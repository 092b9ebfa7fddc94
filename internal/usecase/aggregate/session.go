package aggregate

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

// DefaultNoResultsDismiss is how long the no-results notice stays visible.
const DefaultNoResultsDismiss = 3 * time.Second

// Config holds the ranking settings of a session.
type Config struct {
	Preferred        []hit.Type
	Recommended      int
	RandomHits       bool
	Tasks            []task.Task
	NoResultsDismiss time.Duration
	// Rand drives stratified sampling; a time-seeded source is used when nil.
	Rand *rand.Rand
}

// Trigger tells an aggregation pass why it runs.
type Trigger int

// Pass triggers.
const (
	TriggerManual Trigger = iota
	TriggerPush
	TriggerPaste
	TriggerRemove
	TriggerClear
	TriggerInitialFinished
)

// Session is the aggregation core of one search session: it collects hits
// from providers, tracks completion of the initial search and recomputes the
// recommended list from the current store contents.
type Session struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	cfg      Config
	rng      *rand.Rand
	store    Store
	tracker  Tracker
	query    string
	gen      uint64
	last     *Snapshot
	observer Observer
	logger   *zap.Logger
}

// NewSession creates a session. observer may be nil.
func NewSession(cfg Config, observer Observer, logger *zap.Logger) *Session {
	if cfg.Recommended <= 0 {
		cfg.Recommended = DefaultRecommendedLength
	}
	if cfg.NoResultsDismiss <= 0 {
		cfg.NoResultsDismiss = DefaultNoResultsDismiss
	}
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{cfg: cfg, rng: rng, observer: observer, logger: logger}
	s.tracker.Configure(cfg.Tasks)
	return s
}

// SetQuery starts a new search generation: the store is cleared and pushes
// tagged with older generations are dropped from now on.
func (s *Session) SetQuery(query string) uint64 {
	s.mu.Lock()
	gen := s.newGeneration(query)
	var events []Event
	if !s.tracker.Pending() {
		events = s.rebuild(TriggerClear)
	}
	s.emit(events)
	return gen
}

// ArmInitialSearch starts query as the initial search. Nothing is rendered
// until every configured task is done, not even the cleared list. A session
// is armed once; later calls behave like SetQuery.
func (s *Session) ArmInitialSearch(query string) uint64 {
	s.mu.Lock()
	gen := s.newGeneration(query)
	var events []Event
	switch {
	case s.tracker.State() == Idle:
		if s.tracker.Arm() {
			events = s.finishInitial()
		}
	case !s.tracker.Pending():
		events = s.rebuild(TriggerClear)
	}
	s.emit(events)
	return gen
}

func (s *Session) newGeneration(query string) uint64 {
	s.query = query
	s.gen++
	s.store.Clear()
	return s.gen
}

// Push adds hits to a list. gen 0 addresses the current generation.
// It returns false when the generation was superseded.
func (s *Session) Push(gen uint64, list hit.List, origin hit.Origin, hits ...hit.Hit) bool {
	s.mu.Lock()
	if gen != 0 && gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping stale hits",
			zap.Uint64("generation", gen), zap.Uint64("current", s.gen), zap.Int("hits", len(hits)))
		return false
	}

	s.store.Push(list, hits...)

	var events []Event
	switch {
	case origin == hit.Paste:
		if len(hits) > 0 {
			h := hits[0]
			events = append(events, Event{Kind: EventZoomTo, Hit: &h})
		}
		if s.store.Len(list) > 1 {
			events = append(events, s.rebuild(TriggerPaste)...)
		}
	case !s.tracker.Pending():
		events = s.rebuild(TriggerPush)
	}
	s.emit(events)
	return true
}

// Remove deletes matching hits from a list. gen 0 addresses the current generation.
func (s *Session) Remove(gen uint64, list hit.List, f hit.Filter) int {
	s.mu.Lock()
	if gen != 0 && gen != s.gen {
		s.mu.Unlock()
		return 0
	}
	if f.IsZero() {
		s.mu.Unlock()
		s.logger.Warn("ignoring empty hit filter", zap.String("list", string(list)))
		return 0
	}

	n := s.store.Remove(list, f)
	var events []Event
	if n > 0 && !s.tracker.Pending() {
		events = s.rebuild(TriggerRemove)
	}
	s.emit(events)
	return n
}

// MarkDone resolves an initial-search task. Completion from superseded
// generations still counts so that aborted providers cannot stall the search.
func (s *Session) MarkDone(t task.Task) {
	s.mu.Lock()
	var events []Event
	if s.tracker.MarkDone(t) {
		events = s.finishInitial()
	}
	s.emit(events)
}

// Abort resolves a task whose provider gave up.
func (s *Session) Abort(t task.Task) {
	s.logger.Debug("task aborted", zap.String("task", string(t)))
	s.MarkDone(t)
}

// Rebuild forces an aggregation pass and returns its snapshot.
func (s *Session) Rebuild() Snapshot {
	s.mu.Lock()
	events := s.rebuild(TriggerManual)
	snap := *events[0].Snapshot
	s.emit(events)
	return snap
}

// Snapshot returns the result of the last aggregation pass.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Snapshot{Query: s.query, Generation: s.gen, Initial: s.tracker.State()}
	}
	snap := *s.last
	snap.Initial = s.tracker.State()
	return snap
}

// Generation returns the current search generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// InitialState returns the initial search state and the tasks still outstanding.
func (s *Session) InitialState() (State, []task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.State(), s.tracker.Remaining()
}

func (s *Session) finishInitial() []Event {
	events := []Event{{Kind: EventInitialSearchFinished}}
	events = append(events, s.rebuild(TriggerInitialFinished)...)
	if len(s.last.Final) == 1 {
		h := s.last.Final[0]
		events = append(events, Event{Kind: EventAutoSelect, Hit: &h})
	}
	if len(s.last.Recommended) == 0 {
		events = append(events, Event{Kind: EventNoInitialResults, Dismiss: s.cfg.NoResultsDismiss})
	}
	return events
}

// rebuild recomputes the snapshot unless the store is unchanged since the last pass.
func (s *Session) rebuild(trigger Trigger) []Event {
	version := s.store.Version()
	if s.last == nil || s.last.Version != version || s.last.Generation != s.gen {
		final := s.store.Final()
		groups := Partition(final, s.cfg.Preferred)
		s.last = &Snapshot{
			Query:       s.query,
			Generation:  s.gen,
			Version:     version,
			Recommended: Select(groups, s.cfg.Recommended, len(final), s.cfg.RandomHits, s.rng),
			Final:       final,
			Groups:      groups,
		}
	}
	snap := *s.last
	snap.Initial = s.tracker.State()
	s.logger.Debug("aggregation pass",
		zap.Int("trigger", int(trigger)),
		zap.Uint64("version", version),
		zap.Int("hits", len(snap.Final)),
		zap.Int("recommended", len(snap.Recommended)),
	)
	return []Event{{Kind: EventRecommendedListChanged, Snapshot: &snap}}
}

// emit releases the state lock and delivers events in order. Must be called with mu held.
func (s *Session) emit(events []Event) {
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	if s.observer == nil {
		return
	}
	for _, e := range events {
		s.observer.Notify(e)
	}
}
