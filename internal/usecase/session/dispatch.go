package session

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/logger"
	"github.com/kailas-cloud/portalsearch/internal/metrics"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// generationSink binds provider output to the search generation it was started for.
type generationSink struct {
	agg *aggregate.Session
	gen uint64
}

func (s *generationSink) Push(list hit.List, hits ...hit.Hit) {
	if len(hits) == 0 {
		return
	}
	if s.agg.Push(s.gen, list, "", hits...) {
		metrics.HitsPushedTotal.WithLabelValues(string(list)).Add(float64(len(hits)))
	}
}

func (s *generationSink) Remove(list hit.List, f hit.Filter) int {
	return s.agg.Remove(s.gen, list, f)
}

func (s *generationSink) Done(t task.Task) {
	s.agg.MarkDone(t)
}

// dispatch fans query out to every provider and blocks until all of them returned.
// Every task of every provider is resolved before dispatch returns.
func (s *Service) dispatch(ctx context.Context, agg *aggregate.Session, gen uint64, query string) {
	log := logger.FromContext(ctx)
	sink := &generationSink{agg: agg, gen: gen}
	n := utf8.RuneCountInString(query)

	// Providers failing must not cancel their siblings, so no shared error context.
	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for _, p := range s.providers {
		if n < s.minChars(p) {
			log.Debug("query below provider threshold",
				zap.String("provider", p.Name()), zap.Int("min_chars", s.minChars(p)))
			markDone(agg, p)
			continue
		}
		g.Go(func() error {
			s.runProvider(ctx, p, query, sink)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) runProvider(ctx context.Context, p domain.Provider, query string, sink *generationSink) {
	defer markDone(sink.agg, p)
	if ctx.Err() != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), "canceled").Inc()
		return
	}

	log := logger.ForProvider(logger.FromContext(ctx), p.Name())
	pctx, cancel := context.WithTimeout(logger.ContextWithLogger(ctx, log), s.timeoutFor(p))
	defer cancel()

	start := time.Now()
	err := p.Search(pctx, query, sink)
	elapsed := time.Since(start)

	status := providerStatus(ctx, pctx, err)
	metrics.ProviderRequestDuration.WithLabelValues(p.Name()).Observe(elapsed.Seconds())
	metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), status).Inc()

	switch status {
	case "ok":
		log.Debug("provider search finished", zap.Duration("duration", elapsed))
	case "canceled":
		log.Debug("provider search superseded", zap.Duration("duration", elapsed))
	default:
		log.Warn("provider search failed",
			zap.String("status", status), zap.Duration("duration", elapsed), zap.Error(err))
	}
}

func providerStatus(parent, ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "ok"
	case parent.Err() != nil:
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func markDone(agg *aggregate.Session, p domain.Provider) {
	for _, t := range p.Tasks() {
		agg.MarkDone(t)
	}
}

func (s *Service) minChars(p domain.Provider) int {
	if n := p.MinChars(); n > 0 {
		return n
	}
	return s.defaultMinChars
}

func (s *Service) timeoutFor(p domain.Provider) time.Duration {
	if tp, ok := p.(*timedProvider); ok && tp.timeout > 0 {
		return tp.timeout
	}
	return s.providerTimeout
}

type timedProvider struct {
	domain.Provider
	timeout time.Duration
}

// WithTimeout overrides the service-wide search timeout for a single provider.
func WithTimeout(p domain.Provider, timeout time.Duration) domain.Provider {
	if timeout <= 0 {
		return p
	}
	return &timedProvider{Provider: p, timeout: timeout}
}
