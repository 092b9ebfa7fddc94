package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/config"
	dbRedis "github.com/kailas-cloud/portalsearch/internal/db/redis"
	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/events"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	logpkg "github.com/kailas-cloud/portalsearch/internal/logger"
	"github.com/kailas-cloud/portalsearch/internal/metrics"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
	"github.com/kailas-cloud/portalsearch/internal/repository/embcache"
	"github.com/kailas-cloud/portalsearch/internal/repository/hitcache"
	"github.com/kailas-cloud/portalsearch/internal/resilience"
	"github.com/kailas-cloud/portalsearch/internal/transport/elastic"
	"github.com/kailas-cloud/portalsearch/internal/transport/gazetteer"
	"github.com/kailas-cloud/portalsearch/internal/transport/gdi"
	"github.com/kailas-cloud/portalsearch/internal/transport/komoot"
	openaiEmb "github.com/kailas-cloud/portalsearch/internal/transport/openai"
	"github.com/kailas-cloud/portalsearch/internal/transport/upstream"
	"github.com/kailas-cloud/portalsearch/internal/version"
	healthuc "github.com/kailas-cloud/portalsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/portalsearch/internal/usecase/session"
	"github.com/kailas-cloud/portalsearch/internal/usecase/topics"
)

// app is the wired object graph shared by the serve and query commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	labels   *i18n.Labels
	store    *dbRedis.Store
	bus      *events.NATSPublisher
	hub      *events.Hub
	catalogs map[string]*catalog.Repo
	sessions *sessionuc.Service
	health   *healthuc.Service
}

type appOptions struct {
	// Bus connects the NATS publisher when configured.
	Bus bool
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, catalogs: make(map[string]*catalog.Repo)}

	labels, err := i18n.New(cfg.Labels, cfg.Search.Language)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	a.labels = labels

	if cfg.Cache.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Cache.Addrs, Password: cfg.Cache.Password})
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache: %w", err)
		}
		a.store = store
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	a.hub = events.NewHub(cfg.Events.BufferSize)
	a.hub.OnDropped(func(sessionID string) {
		logger.Debug("event dropped for slow listener", zap.String("session_id", sessionID))
	})
	if opts.Bus && cfg.Events.NATSURL != "" {
		bus, err := events.ConnectNATS(cfg.Events.NATSURL, events.NATSOptions{
			Prefix: cfg.Events.SubjectPrefix,
		}, logger.Named("nats"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("events: %w", err)
		}
		a.bus = bus
	}

	providers, embedder, err := a.buildProviders()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sessions = sessionuc.New(providers, sessionuc.Options{
		Settings:        searchSettings(cfg.Search, labels),
		Events:          events.NewBridge(a.hub, a.bus),
		IdleTimeout:     time.Duration(cfg.Session.IdleTimeoutSec) * time.Second,
		MaxConcurrent:   cfg.Session.MaxConcurrentProviders,
		ProviderTimeout: time.Duration(cfg.Session.ProviderTimeoutSec) * time.Second,
		DefaultMinChars: cfg.Search.MinChars,
		Tasks:           task.Expand(cfg.Providers.ActiveKeys()),
		Logger:          logger,
	})

	var components []healthuc.Component
	if a.store != nil {
		components = append(components, healthuc.Component{Name: "cache", Pinger: a.store})
	}
	if a.bus != nil {
		components = append(components, healthuc.Component{Name: "events", Pinger: a.bus})
	}
	if embedder != nil {
		components = append(components, healthuc.Component{Name: "embedding", Pinger: healthuc.PingFunc(embedder.HealthCheck)})
	}
	a.health = healthuc.New(components...)

	logger.Info("Providers configured",
		zap.Strings("providers", cfg.Providers.ActiveKeys()),
		zap.Bool("cache", a.store != nil),
		zap.Bool("bus", a.bus != nil),
	)
	return a, nil
}

// Close releases connections. Sessions must be shut down first.
func (a *app) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// buildProviders constructs the configured providers. The returned embedder is
// nil without semantic search.
func (a *app) buildProviders() ([]domain.Provider, *openaiEmb.Embedder, error) {
	cfg := a.cfg
	p := cfg.Providers

	exec := resilience.NewExecutor(resilienceConfig(cfg.Resilience), a.logger.Named("resilience"))
	exec.OnStateChange(func(op string, _, to gobreaker.State) {
		metrics.BreakerState.WithLabelValues(op).Set(float64(to))
	})

	httpClient := &http.Client{Transport: http.DefaultTransport}
	client := func(name string, common config.ProviderCommon, username, password string) *upstream.Client {
		return upstream.New(upstream.Options{
			HTTPClient: httpClient,
			Guard:      exec.Guard(name, resilience.NewLimiter(common.RateLimitRPS, common.RateBurst)),
			Username:   username,
			Password:   password,
			UserAgent:  "portalsearch/" + version.Version,
		})
	}

	var providers []domain.Provider
	add := func(prov domain.Provider, common config.ProviderCommon, cached bool) {
		if cached && a.store != nil {
			prov = hitcache.New(prov, a.store, hitCacheOptions(cfg.Cache), a.logger)
		}
		providers = append(providers, sessionuc.WithTimeout(prov, common.Timeout(0)))
	}

	if c := p.Gazetteer; c != nil {
		add(gazetteer.New(gazetteer.Config{
			URL:        c.URL,
			MinChars:   c.MinChars,
			MaxResults: c.MaxResults,
		}, client("gazetteer", c.ProviderCommon, "", ""), logpkg.ForProvider(a.logger, "gazetteer")),
			c.ProviderCommon, true)
	}
	if c := p.ElasticSearch; c != nil {
		es := elastic.NewClient(c.URL, client("elasticSearch", c.ProviderCommon, c.Username, c.Password))
		add(elastic.NewProvider(elastic.Config{
			Index:           c.Index,
			SearchFields:    c.SearchFields,
			IDField:         c.IDField,
			NameField:       c.NameField,
			TypeField:       c.TypeField,
			DefaultType:     c.DefaultType,
			CoordinateField: c.CoordinateField,
			MinChars:        c.MinChars,
			MaxResults:      c.MaxResults,
			ResolveType:     a.labels.Resolve,
		}, es, logpkg.ForProvider(a.logger, "elasticSearch")), c.ProviderCommon, true)
	}
	if c := p.Komoot; c != nil {
		add(komoot.New(komoot.Config{
			URL:        c.URL,
			Lang:       c.Lang,
			BBox:       c.BBox,
			MinChars:   c.MinChars,
			MaxResults: c.MaxResults,
		}, client("komoot", c.ProviderCommon, "", ""), logpkg.ForProvider(a.logger, "komoot")),
			c.ProviderCommon, true)
	}
	if c := p.Tree; c != nil {
		repo, err := a.catalog(c.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		add(topics.NewTree(repo, topics.TreeOptions{
			MinChars:   c.MinChars,
			MaxResults: c.MaxResults,
			Fuzzy:      c.Fuzzy,
		}, logpkg.ForProvider(a.logger, "tree")), c.ProviderCommon, false)
	}
	if c := p.GDI; c != nil {
		es := elastic.NewClient(c.URL, client("gdi", c.ProviderCommon, "", ""))
		add(gdi.New(gdi.Config{
			Index:      c.Index,
			MinChars:   c.MinChars,
			MaxResults: c.MaxResults,
		}, es, logpkg.ForProvider(a.logger, "gdi")), c.ProviderCommon, true)
	}

	var embedder *openaiEmb.Embedder
	if c := p.SemanticTopics; c != nil {
		repo, err := a.catalog(c.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     c.APIKey,
			BaseURL:    c.BaseURL,
			Model:      c.Model,
			Dimensions: c.Dimensions,
			Guard:      exec.Guard("semanticTopics", resilience.NewLimiter(c.RateLimitRPS, c.RateBurst)),
			Logger:     logpkg.ForProvider(a.logger, "semanticTopics"),
		})
		var emb domain.Embedder = embedder
		if a.store != nil {
			emb = embcache.New(embedder, a.store, embCacheOptions(cfg.Cache, c.Model), a.logger)
		}
		add(topics.NewSemantic(repo, emb, topics.SemanticOptions{
			MinChars:       c.MinChars,
			MaxResults:     c.MaxResults,
			MinScore:       c.MinScore,
			QueryPrefix:    c.QueryPrefix,
			DocumentPrefix: c.DocumentPrefix,
		}, logpkg.ForProvider(a.logger, "semanticTopics")), c.ProviderCommon, false)
	}

	if len(providers) == 0 {
		a.logger.Warn("no providers configured, searches finish without results")
	}
	return providers, embedder, nil
}

// hitCacheOptions passes the shared key prefix through; the decorator adds its own namespace.
func hitCacheOptions(c config.CacheConfig) hitcache.Options {
	return hitcache.Options{
		KeyPrefix:  c.KeyPrefix,
		TTL:        time.Duration(c.TTLSec) * time.Second,
		CacheTotal: metrics.HitCacheTotal,
	}
}

func embCacheOptions(c config.CacheConfig, model string) embcache.Options {
	return embcache.Options{
		KeyPrefix:  c.KeyPrefix,
		Model:      model,
		CacheTotal: metrics.HitCacheTotal,
	}
}

// catalog opens a layer catalog once per path so tree and semantic search share it.
func (a *app) catalog(path string) (*catalog.Repo, error) {
	if repo, ok := a.catalogs[path]; ok {
		return repo, nil
	}
	repo, err := catalog.Open(path, a.logger.Named("catalog"))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	a.catalogs[path] = repo
	return repo, nil
}

// reloadCatalog re-reads the catalog stored at path, if one is open.
func (a *app) reloadCatalog(path string) (bool, error) {
	repo, ok := a.catalogs[path]
	if !ok {
		return false, nil
	}
	return true, repo.Reload()
}

func searchSettings(c config.SearchConfig, labels *i18n.Labels) sessionuc.Settings {
	return sessionuc.Settings{
		Preferred:        labels.ResolveAll(c.SearchResultOrder),
		Recommended:      c.RecommendedListLength,
		RandomHits:       c.SelectRandomHits,
		NoResultsDismiss: time.Duration(c.NoResultsDismissSec) * time.Second,
	}
}

func resilienceConfig(c config.ResilienceConfig) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = c.RetryMaxAttempts
	out.RetryInitialBackoff = time.Duration(c.RetryInitialBackoffMS) * time.Millisecond
	out.RetryMaxBackoff = time.Duration(c.RetryMaxBackoffMS) * time.Millisecond
	if c.BreakerEnabled != nil {
		out.BreakerEnabled = *c.BreakerEnabled
	}
	if c.BreakerMinRequests > 0 {
		out.BreakerMinRequests = c.BreakerMinRequests
	}
	if c.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = c.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = time.Duration(c.BreakerOpenTimeoutSec) * time.Second
	return out
}
