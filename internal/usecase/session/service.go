// Package session manages search sessions and dispatches their queries to providers.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/logger"
	"github.com/kailas-cloud/portalsearch/internal/metrics"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// Defaults applied by New.
const (
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultMaxConcurrent   = 4
	DefaultProviderTimeout = 10 * time.Second
	DefaultMinChars        = 3
)

// Options configures a Service.
type Options struct {
	Settings        Settings
	Events          EventSink
	IdleTimeout     time.Duration
	MaxConcurrent   int
	ProviderTimeout time.Duration
	// DefaultMinChars applies to providers that report no threshold of their own.
	DefaultMinChars int
	// Tasks is the tracked initial-search task set. Nil derives it from the providers.
	Tasks  []task.Task
	Logger *zap.Logger
}

// View is the state of a session returned to callers.
type View struct {
	ID       string
	Snapshot aggregate.Snapshot
	// Pending lists initial-search tasks that have not reported yet.
	Pending []task.Task
}

type entry struct {
	id       string
	agg      *aggregate.Session
	logger   *zap.Logger
	lastSeen atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	running chan struct{}
}

// Service is the registry of open sessions.
type Service struct {
	providers       []domain.Provider
	tasks           []task.Task
	settings        atomic.Pointer[Settings]
	events          EventSink
	idleTimeout     time.Duration
	maxConcurrent   int
	providerTimeout time.Duration
	defaultMinChars int
	logger          *zap.Logger
	now             func() time.Time

	root     context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	sessions map[string]*entry
}

// New creates a session service over the active providers.
func New(providers []domain.Provider, opts Options) *Service {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.DefaultMinChars <= 0 {
		opts.DefaultMinChars = DefaultMinChars
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	root, stop := context.WithCancel(context.Background())
	s := &Service{
		providers:       providers,
		tasks:           opts.Tasks,
		events:          opts.Events,
		idleTimeout:     opts.IdleTimeout,
		maxConcurrent:   opts.MaxConcurrent,
		providerTimeout: opts.ProviderTimeout,
		defaultMinChars: opts.DefaultMinChars,
		logger:          opts.Logger,
		now:             time.Now,
		root:            root,
		stop:            stop,
		sessions:        make(map[string]*entry),
	}
	if s.tasks == nil {
		s.tasks = collectTasks(providers)
	} else {
		s.checkTasks()
	}
	s.settings.Store(opts.Settings.clone())
	return s
}

// checkTasks logs tracked tasks no provider reports and provider tasks that are not tracked.
// The former keep the initial search pending until the session is searched again.
func (s *Service) checkTasks() {
	tracked := make(map[task.Task]bool, len(s.tasks))
	for _, t := range s.tasks {
		tracked[t] = true
	}
	served := make(map[task.Task]bool)
	for _, t := range collectTasks(s.providers) {
		served[t] = true
		if !tracked[t] {
			s.logger.Warn("provider task not tracked by the initial search", zap.String("task", string(t)))
		}
	}
	for _, t := range s.tasks {
		if !served[t] {
			s.logger.Warn("tracked task has no provider", zap.String("task", string(t)))
		}
	}
}

func collectTasks(providers []domain.Provider) []task.Task {
	seen := make(map[task.Task]bool)
	var out []task.Task
	for _, p := range providers {
		for _, t := range p.Tasks() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Tasks returns the initial-search tasks tracked by every new session.
func (s *Service) Tasks() []task.Task {
	return append([]task.Task(nil), s.tasks...)
}

// CheckQuery reports domain.ErrQueryTooShort when no provider would search for query.
func (s *Service) CheckQuery(query string) error {
	if len(s.providers) == 0 {
		return nil
	}
	n := utf8.RuneCountInString(strings.TrimSpace(query))
	lowest := 0
	for i, p := range s.providers {
		if m := s.minChars(p); i == 0 || m < lowest {
			lowest = m
		}
	}
	if n < lowest {
		return fmt.Errorf("%w: %d characters, providers need at least %d", domain.ErrQueryTooShort, n, lowest)
	}
	return nil
}

// Settings returns the settings applied to new sessions.
func (s *Service) Settings() Settings {
	return *s.settings.Load().clone()
}

// SetSettings replaces the settings for sessions opened from now on.
func (s *Service) SetSettings(st Settings) {
	s.settings.Store(st.clone())
	s.logger.Info("search settings updated",
		zap.Int("recommended", st.Recommended),
		zap.Bool("random_hits", st.RandomHits),
		zap.Int("preferred_types", len(st.Preferred)),
	)
}

// Open creates a session. A non-empty initialQuery starts the initial search.
func (s *Service) Open(ctx context.Context, initialQuery string) (View, error) {
	if err := s.root.Err(); err != nil {
		return View{}, fmt.Errorf("open session: %w", err)
	}

	id := uuid.NewString()
	log := logger.ForSession(logger.FromContext(ctx), id)
	st := s.settings.Load()

	var inner aggregate.Observer
	if s.events != nil {
		inner = s.events.ObserverFor(id)
	}
	obs := &timedObserver{inner: inner, armed: s.now()}

	e := &entry{
		id: id,
		agg: aggregate.NewSession(aggregate.Config{
			Preferred:        st.Preferred,
			Recommended:      st.Recommended,
			RandomHits:       st.RandomHits,
			Tasks:            s.tasks,
			NoResultsDismiss: st.NoResultsDismiss,
		}, obs, log),
		logger: log,
	}
	e.lastSeen.Store(s.now().UnixNano())

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()
	log.Info("session opened", zap.Bool("initial_search", strings.TrimSpace(initialQuery) != ""))

	if q := strings.TrimSpace(initialQuery); q != "" {
		s.startSearch(e, q, true)
	}
	return s.view(e), nil
}

// Get returns the current state of a session.
func (s *Service) Get(_ context.Context, id string) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return s.view(e), nil
}

// Search starts a new search generation. Results arrive asynchronously; the
// running search of the previous generation is canceled.
func (s *Service) Search(_ context.Context, id, query string) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	s.startSearch(e, strings.TrimSpace(query), false)
	return s.view(e), nil
}

// Await blocks until the running search of a session has returned from every provider.
func (s *Service) Await(ctx context.Context, id string) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running != nil {
		select {
		case <-running:
		case <-ctx.Done():
			return View{}, fmt.Errorf("await search: %w", ctx.Err())
		}
	}
	return s.view(e), nil
}

// PushHits adds externally produced hits to the current generation.
func (s *Service) PushHits(_ context.Context, id string, list hit.List, origin hit.Origin, hits []hit.Hit) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	for i := range hits {
		if strings.TrimSpace(hits[i].Name) == "" || hits[i].Type.Key() == "" {
			return View{}, fmt.Errorf("%w: hit %d needs a name and a type", domain.ErrInvalidHit, i)
		}
	}
	if len(hits) > 0 && e.agg.Push(0, list, origin, hits...) {
		metrics.HitsPushedTotal.WithLabelValues(string(list)).Add(float64(len(hits)))
	}
	return s.view(e), nil
}

// RemoveHits deletes matching hits from a list and returns how many were removed.
func (s *Service) RemoveHits(_ context.Context, id string, list hit.List, f hit.Filter) (int, error) {
	e, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	if f.IsZero() {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, hit.ErrEmptyFilter)
	}
	return e.agg.Remove(0, list, f), nil
}

// Groups returns the type groups of the last aggregation pass. A known or
// other type in only narrows the result to that group; limit > 0 caps each group.
func (s *Service) Groups(_ context.Context, id string, only *hit.Type, limit int) ([]hit.TypeGroup, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	snap := e.agg.Snapshot()
	out := make([]hit.TypeGroup, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		if only != nil && g.Type != *only {
			continue
		}
		hits := g.Hits
		if limit > 0 && len(hits) > limit {
			hits = hits[:limit]
		}
		out = append(out, hit.TypeGroup{Type: g.Type, Hits: append([]hit.Hit(nil), hits...)})
	}
	return out, nil
}

// Close cancels a session's running search and forgets it.
func (s *Service) Close(_ context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.release(e)
	e.logger.Info("session closed")
	return nil
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle closes sessions not touched within the idle timeout and returns how many were closed.
func (s *Service) EvictIdle() int {
	cutoff := s.now().Add(-s.idleTimeout).UnixNano()

	s.mu.Lock()
	var idle []*entry
	for id, e := range s.sessions {
		if e.lastSeen.Load() < cutoff {
			idle = append(idle, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range idle {
		s.release(e)
		e.logger.Info("session evicted after idle timeout")
	}
	return len(idle)
}

// Run evicts idle sessions periodically until ctx is done.
func (s *Service) Run(ctx context.Context) {
	interval := s.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown cancels every running search and waits for the dispatchers to return.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	s.mu.Lock()
	all := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		all = append(all, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, e := range all {
		s.release(e)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for provider searches: %w", ctx.Err())
	}
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	e.lastSeen.Store(s.now().UnixNano())
	return e, nil
}

func (s *Service) release(e *entry) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	if s.events != nil {
		s.events.Forget(e.id)
	}
	metrics.ActiveSessions.Dec()
}

func (s *Service) startSearch(e *entry, query string, initial bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}

	var gen uint64
	if initial {
		gen = e.agg.ArmInitialSearch(query)
	} else {
		gen = e.agg.SetQuery(query)
	}

	ctx, cancel := context.WithCancel(logger.ContextWithLogger(s.root, e.logger.With(zap.Uint64("generation", gen))))
	done := make(chan struct{})
	e.cancel, e.running = cancel, done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()
		s.dispatch(ctx, e.agg, gen, query)
	}()
}

func (s *Service) view(e *entry) View {
	v := View{ID: e.id, Snapshot: e.agg.Snapshot()}
	if state, pending := e.agg.InitialState(); state == aggregate.Pending {
		v.Pending = pending
	}
	return v
}

// timedObserver records the initial search duration before forwarding events.
type timedObserver struct {
	inner aggregate.Observer
	armed time.Time
}

func (o *timedObserver) Notify(e aggregate.Event) {
	if e.Kind == aggregate.EventInitialSearchFinished {
		metrics.InitialSearchDuration.Observe(time.Since(o.armed).Seconds())
	}
	if o.inner != nil {
		o.inner.Notify(e)
	}
}
