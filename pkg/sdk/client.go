package portalsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/portalsearch/internal/db/redis"
	"github.com/kailas-cloud/portalsearch/internal/events"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	"github.com/kailas-cloud/portalsearch/internal/metrics"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
	"github.com/kailas-cloud/portalsearch/internal/repository/hitcache"
	"github.com/kailas-cloud/portalsearch/internal/transport/komoot"
	"github.com/kailas-cloud/portalsearch/internal/transport/upstream"
	healthuc "github.com/kailas-cloud/portalsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/portalsearch/internal/usecase/session"
	"github.com/kailas-cloud/portalsearch/internal/usecase/topics"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the portalsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	sessions *sessionuc.Service
	hub      *events.Hub
	labels   *i18n.Labels
	health   *healthuc.Service
	store    *dbRedis.Store
	catalog  *catalog.Repo
	obs      *observer
}

// New creates a Client. The provided context is used for the cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if len(cfg.providers) == 0 && cfg.photon == nil && cfg.catalog == nil {
		return nil, errors.New("portalsearch: no providers (use WithProvider, WithPhoton or WithTopicCatalog)")
	}
	if cfg.catalog != nil && cfg.catalog.path == "" {
		return nil, errors.New("portalsearch: WithFuzzyTopics needs WithTopicCatalog")
	}

	labels, err := i18n.New(cfg.labels, cfg.language)
	if err != nil {
		return nil, fmt.Errorf("portalsearch: %w", err)
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{labels: labels, obs: obs}
	if cfg.cacheAddr != "" {
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: []string{cfg.cacheAddr}, Password: cfg.cachePassword})
		if err != nil {
			return nil, fmt.Errorf("portalsearch: create cache: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("portalsearch: cache not ready: %w", err)
		}
		c.store = store
	}

	providers, err := c.providers(cfg)
	if err != nil {
		c.closeStore()
		return nil, err
	}

	c.hub = events.NewHub(32)
	c.sessions = sessionuc.New(providers, sessionuc.Options{
		Settings: sessionuc.Settings{
			Preferred:        labels.ResolveAll(cfg.resultOrder),
			Recommended:      cfg.recommended,
			RandomHits:       cfg.randomHits,
			NoResultsDismiss: cfg.dismissAfter,
		},
		Events:          events.NewBridge(c.hub, nil),
		MaxConcurrent:   cfg.concurrency,
		ProviderTimeout: cfg.timeout,
		DefaultMinChars: cfg.minChars,
		Logger:          zap.NewNop(),
	})

	var components []healthuc.Component
	if c.store != nil {
		components = append(components, healthuc.Component{Name: "cache", Pinger: c.store})
	}
	c.health = healthuc.New(components...)
	return c, nil
}

func (c *Client) providers(cfg *clientConfig) ([]Provider, error) {
	out := make([]Provider, 0, len(cfg.providers)+2)
	if p := cfg.photon; p != nil {
		var prov Provider = komoot.New(komoot.Config{
			URL:        p.url,
			Lang:       p.lang,
			BBox:       p.bbox,
			MinChars:   cfg.minChars,
			MaxResults: 20,
		}, upstream.New(upstream.Options{UserAgent: "portalsearch-sdk"}), zap.NewNop())
		if c.store != nil {
			prov = hitcache.New(prov, c.store, hitcache.Options{
				KeyPrefix:  "portalsearch:sdk:",
				TTL:        cfg.cacheTTL,
				CacheTotal: metrics.HitCacheTotal,
			}, zap.NewNop())
		}
		out = append(out, prov)
	}
	if cat := cfg.catalog; cat != nil {
		repo, err := catalog.Open(cat.path, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("portalsearch: open catalog: %w", err)
		}
		c.catalog = repo
		out = append(out, topics.NewTree(repo, topics.TreeOptions{
			MinChars:   cfg.minChars,
			MaxResults: 20,
			Fuzzy:      cat.fuzzy,
		}, zap.NewNop()))
	}
	return append(out, cfg.providers...), nil
}

// Close stops running searches and releases all resources.
func (c *Client) Close() {
	_ = c.sessions.Shutdown(context.Background())
	c.closeStore()
}

func (c *Client) closeStore() {
	if c.store != nil {
		c.store.Close()
	}
}

// Search runs one search to completion and returns the ranked result.
func (c *Client) Search(ctx context.Context, query string) (res Result, err error) {
	done := c.obs.track("search", "query", query)
	defer func() { done(err) }()

	if err = c.sessions.CheckQuery(query); err != nil {
		return Result{}, err
	}
	v, err := c.sessions.Open(ctx, query)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = c.sessions.Close(context.Background(), v.ID) }()

	if v, err = c.sessions.Await(ctx, v.ID); err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}
	c.obs.searched(len(v.Snapshot.Final))
	return resultOf(&v.Snapshot, v.Pending), nil
}

// Open starts a session. A non-empty query starts the initial search.
func (c *Client) Open(ctx context.Context, query string) (_ *Session, err error) {
	done := c.obs.track("open")
	defer func() { done(err) }()

	v, err := c.sessions.Open(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Session{id: v.ID, c: c}, nil
}

// Label returns the label of t in the best match for lang, an Accept-Language value.
func (c *Client) Label(t HitType, lang string) string {
	return c.labels.Label(t, c.labels.Match(lang))
}

// Reload re-reads the topic catalog file. Without a catalog it does nothing.
func (c *Client) Reload() error {
	if c.catalog == nil {
		return nil
	}
	if err := c.catalog.Reload(); err != nil {
		return fmt.Errorf("portalsearch: reload catalog: %w", err)
	}
	return nil
}
