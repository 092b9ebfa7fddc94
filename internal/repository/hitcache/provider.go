// Package hitcache caches provider results in the key-value store.
package hitcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/db"
	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

// store is the consumer interface for the hit cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a CachedProvider.
type Options struct {
	// KeyPrefix is the shared cache namespace; keys continue with "hits:<provider>:".
	KeyPrefix string
	TTL       time.Duration
	// CacheTotal has labels "provider" and "result" ("hit"/"miss").
	CacheTotal *prometheus.CounterVec
}

// CachedProvider replays cached pushes for repeated queries.
// Only searches that completed without error and without removals are stored.
type CachedProvider struct {
	inner      domain.Provider
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

var _ domain.Provider = (*CachedProvider)(nil)

// New wraps inner with a result cache.
func New(inner domain.Provider, s store, opts Options, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		inner:      inner,
		store:      s,
		prefix:     opts.KeyPrefix + "hits:" + inner.Name() + ":",
		ttl:        opts.TTL,
		cacheTotal: opts.CacheTotal,
		logger:     logger,
	}
}

// Name implements domain.Provider.
func (c *CachedProvider) Name() string { return c.inner.Name() }

// Tasks implements domain.Provider.
func (c *CachedProvider) Tasks() []task.Task { return c.inner.Tasks() }

// MinChars implements domain.Provider.
func (c *CachedProvider) MinChars() int { return c.inner.MinChars() }

// Search implements domain.Provider.
func (c *CachedProvider) Search(ctx context.Context, query string, sink domain.Sink) error {
	key := c.cacheKey(query)

	if e, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		for _, p := range e.Pushes {
			sink.Push(p.List, p.Hits...)
		}
		for _, t := range c.inner.Tasks() {
			sink.Done(t)
		}
		return nil
	}
	c.incCache("miss")

	rec := &recorder{sink: sink}
	if err := c.inner.Search(ctx, query, rec); err != nil {
		return err //nolint:wrapcheck // decorator is transparent
	}
	if rec.removed || ctx.Err() != nil {
		return nil
	}
	c.putToCache(ctx, key, rec.entry())
	return nil
}

func (c *CachedProvider) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.inner.Name(), result).Inc()
	}
}

func (c *CachedProvider) cacheKey(query string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(query)))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *CachedProvider) getFromCache(ctx context.Context, key string) (entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached hits", zap.String("key", key), zap.Error(err))
		}
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached hits", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	return e, true
}

func (c *CachedProvider) putToCache(ctx context.Context, key string, e entry) {
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("Failed to encode hits", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache hits", zap.String("key", key), zap.Error(err))
	}
}

type push struct {
	List hit.List  `json:"list"`
	Hits []hit.Hit `json:"hits"`
}

type entry struct {
	Pushes []push `json:"pushes"`
}

// recorder forwards to the session sink and remembers pushes.
// Providers may push from several goroutines.
type recorder struct {
	sink domain.Sink

	mu      sync.Mutex
	pushes  []push
	removed bool
}

func (r *recorder) Push(list hit.List, hits ...hit.Hit) {
	r.mu.Lock()
	r.pushes = append(r.pushes, push{List: list, Hits: append([]hit.Hit(nil), hits...)})
	r.mu.Unlock()
	r.sink.Push(list, hits...)
}

func (r *recorder) Remove(list hit.List, f hit.Filter) int {
	r.mu.Lock()
	r.removed = true
	r.mu.Unlock()
	return r.sink.Remove(list, f)
}

func (r *recorder) Done(t task.Task) { r.sink.Done(t) }

func (r *recorder) entry() entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return entry{Pushes: r.pushes}
}
