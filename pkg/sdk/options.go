package portalsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type photonSource struct {
	url, lang, bbox string
}

type catalogSource struct {
	path  string
	fuzzy bool
}

type clientConfig struct {
	providers []Provider
	photon    *photonSource
	catalog   *catalogSource

	cacheAddr     string
	cachePassword string
	cacheTTL      time.Duration

	resultOrder  []string
	recommended  int
	randomHits   bool
	minChars     int
	language     string
	labels       map[string]map[string]string
	timeout      time.Duration
	concurrency  int
	dismissAfter time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		recommended:  5,
		minChars:     3,
		language:     "de",
		timeout:      10 * time.Second,
		concurrency:  8,
		dismissAfter: 3 * time.Second,
		cacheTTL:     5 * time.Minute,
	}
}

// WithProvider adds a custom search provider.
func WithProvider(p Provider) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = append(c.providers, p)
	})
}

// WithPhoton adds the Photon geocoder at baseURL. bbox ("minLon,minLat,maxLon,maxLat")
// is optional.
func WithPhoton(baseURL, lang string, bbox ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.photon = &photonSource{url: baseURL, lang: lang}
		if len(bbox) > 0 {
			c.photon.bbox = bbox[0]
		}
	})
}

// WithTopicCatalog adds topic search over a layer catalog file.
func WithTopicCatalog(path string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.catalog == nil {
			c.catalog = &catalogSource{}
		}
		c.catalog.path = path
	})
}

// WithFuzzyTopics switches topic search from substring to fuzzy matching.
func WithFuzzyTopics() Option {
	return optionFunc(func(c *clientConfig) {
		if c.catalog == nil {
			c.catalog = &catalogSource{}
		}
		c.catalog.fuzzy = true
	})
}

// WithRedisCache caches Photon responses in Redis for ttl (default 5m).
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddr = addr
		c.cachePassword = password
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	})
}

// WithResultOrder sets the preferred type order. Entries are kind keys or
// localized labels; unknown entries order free-form types.
func WithResultOrder(types ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.resultOrder = types
	})
}

// WithRecommendedLength sets the length of the recommended list. Default: 5.
func WithRecommendedLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.recommended = n
	})
}

// WithRandomHits samples the recommended list at random across types.
func WithRandomHits() Option {
	return optionFunc(func(c *clientConfig) {
		c.randomHits = true
	})
}

// WithMinChars sets the shortest query searched by providers that have no
// threshold of their own. Default: 3.
func WithMinChars(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minChars = n
	})
}

// WithLanguage sets the default label language. Default: "de".
func WithLanguage(lang string) Option {
	return optionFunc(func(c *clientConfig) {
		c.language = lang
	})
}

// WithLabels overrides type labels per language and kind key.
func WithLabels(labels map[string]map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.labels = labels
	})
}

// WithProviderTimeout bounds each provider search. Default: 10s.
func WithProviderTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithConcurrency limits providers searching at the same time. Default: 8.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
