package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

// Config holds the portalsearch service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Cache      CacheConfig      `yaml:"cache"`
	Events     EventsConfig     `yaml:"events"`
	Session    SessionConfig    `yaml:"session"`
	Search     SearchConfig     `yaml:"search"`
	Labels     LabelsConfig     `yaml:"labels"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig lists the portal origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAgeSec      int      `yaml:"max_age_sec"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the provider result cache connection. No addrs disables caching.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// EventsConfig holds the event bus settings. An empty NATS URL disables publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	BufferSize    int    `yaml:"buffer_size"`
}

// SessionConfig holds search session lifecycle settings.
type SessionConfig struct {
	IdleTimeoutSec         int `yaml:"idle_timeout_sec"`
	MaxConcurrentProviders int `yaml:"max_concurrent_providers"`
	ProviderTimeoutSec     int `yaml:"provider_timeout_sec"`
}

// SearchConfig holds the ranking settings of the search bar.
type SearchConfig struct {
	SearchResultOrder     []string `yaml:"searchResultOrder"`
	RecommendedListLength int      `yaml:"recommendedListLength"`
	SelectRandomHits      bool     `yaml:"selectRandomHits"`
	MinChars              int      `yaml:"minChars"`
	Language              string   `yaml:"language"`
	NoResultsDismissSec   int      `yaml:"noResultsDismissSec"`
}

// LabelsConfig maps a language tag to localized labels per hit kind.
type LabelsConfig map[string]map[string]string

// ResilienceConfig holds retry and circuit breaker settings for provider calls.
type ResilienceConfig struct {
	RetryMaxAttempts      int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMS int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMS     int     `yaml:"retry_max_backoff_ms"`
	BreakerEnabled        *bool   `yaml:"breaker_enabled"`
	BreakerMinRequests    uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio   float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSec int     `yaml:"breaker_open_timeout_sec"`
}

// ProviderCommon holds settings shared by all providers.
type ProviderCommon struct {
	MinChars     int     `yaml:"minChars"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	RateBurst    int     `yaml:"rate_burst"`
	MaxResults   int     `yaml:"max_results"`
}

// Timeout returns the provider timeout, falling back to def.
func (p ProviderCommon) Timeout(def time.Duration) time.Duration {
	if p.TimeoutSec > 0 {
		return time.Duration(p.TimeoutSec) * time.Second
	}
	return def
}

// GazetteerConfig configures the gazetteer provider.
type GazetteerConfig struct {
	ProviderCommon `yaml:",inline"`
	URL            string `yaml:"url"`
}

// ElasticConfig configures the elastic search provider.
type ElasticConfig struct {
	ProviderCommon  `yaml:",inline"`
	URL             string   `yaml:"url"`
	Index           string   `yaml:"index"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	SearchFields    []string `yaml:"search_fields"`
	IDField         string   `yaml:"id_field"`
	NameField       string   `yaml:"name_field"`
	TypeField       string   `yaml:"type_field"`
	DefaultType     string   `yaml:"default_type"`
	CoordinateField string   `yaml:"coordinate_field"`
}

// KomootConfig configures the Photon (komoot) geocoder provider.
type KomootConfig struct {
	ProviderCommon `yaml:",inline"`
	URL            string `yaml:"url"`
	Lang           string `yaml:"lang"`
	BBox           string `yaml:"bbox"`
}

// TreeConfig configures the topic tree provider.
type TreeConfig struct {
	ProviderCommon `yaml:",inline"`
	CatalogPath    string `yaml:"catalog_path"`
	Fuzzy          bool   `yaml:"fuzzy"`
}

// GDIConfig configures the GDI catalogue provider.
type GDIConfig struct {
	ProviderCommon `yaml:",inline"`
	URL            string `yaml:"url"`
	Index          string `yaml:"index"`
}

// SemanticConfig configures semantic topic search over the layer catalog.
type SemanticConfig struct {
	ProviderCommon `yaml:",inline"`
	CatalogPath    string  `yaml:"catalog_path"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Dimensions     int     `yaml:"dimensions"`
	MinScore       float64 `yaml:"min_score"`
	QueryPrefix    string  `yaml:"query_prefix"`
	DocumentPrefix string  `yaml:"document_prefix"`
}

// ProvidersConfig holds the provider sections. A present section activates the provider.
type ProvidersConfig struct {
	Gazetteer      *GazetteerConfig `yaml:"gazetteer"`
	ElasticSearch  *ElasticConfig   `yaml:"elasticSearch"`
	Komoot         *KomootConfig    `yaml:"komoot"`
	Tree           *TreeConfig      `yaml:"tree"`
	GDI            *GDIConfig       `yaml:"gdi"`
	SemanticTopics *SemanticConfig  `yaml:"semanticTopics"`
}

// ActiveKeys returns the configuration keys of the present provider sections.
func (p ProvidersConfig) ActiveKeys() []string {
	var keys []string
	add := func(present bool, t task.Task) {
		if present {
			keys = append(keys, string(t))
		}
	}
	add(p.Gazetteer != nil, task.Gazetteer)
	add(p.ElasticSearch != nil, task.ElasticSearch)
	add(p.Komoot != nil, task.Komoot)
	add(p.Tree != nil, task.Tree)
	add(p.GDI != nil, task.GDI)
	add(p.SemanticTopics != nil, task.SemanticTopics)
	return keys
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Path returns the config file path used for an environment.
func Path(env string) string { return findConfigPath(env) }

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.CORS.MaxAgeSec <= 0 {
		c.CORS.MaxAgeSec = 300
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "portalsearch:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "portalsearch.sessions"
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 32
	}
	if c.Session.IdleTimeoutSec <= 0 {
		c.Session.IdleTimeoutSec = 900
	}
	if c.Session.MaxConcurrentProviders <= 0 {
		c.Session.MaxConcurrentProviders = 8
	}
	if c.Session.ProviderTimeoutSec <= 0 {
		c.Session.ProviderTimeoutSec = 10
	}
	if c.Search.RecommendedListLength <= 0 {
		c.Search.RecommendedListLength = 5
	}
	if c.Search.MinChars <= 0 {
		c.Search.MinChars = 3
	}
	if c.Search.Language == "" {
		c.Search.Language = "de"
	}
	if c.Search.NoResultsDismissSec <= 0 {
		c.Search.NoResultsDismissSec = 3
	}
	if c.Resilience.RetryMaxAttempts <= 0 {
		c.Resilience.RetryMaxAttempts = 2
	}
	if c.Resilience.RetryInitialBackoffMS <= 0 {
		c.Resilience.RetryInitialBackoffMS = 100
	}
	if c.Resilience.RetryMaxBackoffMS <= 0 {
		c.Resilience.RetryMaxBackoffMS = 400
	}
	if c.Resilience.BreakerEnabled == nil {
		enabled := true
		c.Resilience.BreakerEnabled = &enabled
	}
	if c.Resilience.BreakerOpenTimeoutSec <= 0 {
		c.Resilience.BreakerOpenTimeoutSec = 30
	}

	p := &c.Providers
	for _, common := range []*ProviderCommon{
		commonOf(p.Gazetteer), commonOf(p.ElasticSearch), commonOf(p.Komoot),
		commonOf(p.Tree), commonOf(p.GDI), commonOf(p.SemanticTopics),
	} {
		if common == nil {
			continue
		}
		if common.MinChars <= 0 {
			common.MinChars = c.Search.MinChars
		}
		if common.MaxResults <= 0 {
			common.MaxResults = 20
		}
	}
	if p.ElasticSearch != nil {
		if p.ElasticSearch.IDField == "" {
			p.ElasticSearch.IDField = "id"
		}
		if p.ElasticSearch.NameField == "" {
			p.ElasticSearch.NameField = "name"
		}
		if len(p.ElasticSearch.SearchFields) == 0 {
			p.ElasticSearch.SearchFields = []string{p.ElasticSearch.NameField}
		}
	}
	if p.Komoot != nil && p.Komoot.Lang == "" {
		p.Komoot.Lang = c.Search.Language
	}
	if p.SemanticTopics != nil && p.SemanticTopics.CatalogPath == "" && p.Tree != nil {
		p.SemanticTopics.CatalogPath = p.Tree.CatalogPath
	}
}

func commonOf(section any) *ProviderCommon {
	switch s := section.(type) {
	case *GazetteerConfig:
		if s != nil {
			return &s.ProviderCommon
		}
	case *ElasticConfig:
		if s != nil {
			return &s.ProviderCommon
		}
	case *KomootConfig:
		if s != nil {
			return &s.ProviderCommon
		}
	case *TreeConfig:
		if s != nil {
			return &s.ProviderCommon
		}
	case *GDIConfig:
		if s != nil {
			return &s.ProviderCommon
		}
	case *SemanticConfig:
		if s != nil {
			return &s.ProviderCommon
		}
	}
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.RecommendedListLength > 100 {
		return fmt.Errorf("search.recommendedListLength must be at most 100, got %d", c.Search.RecommendedListLength)
	}
	p := c.Providers
	if p.Gazetteer != nil && p.Gazetteer.URL == "" {
		return fmt.Errorf("providers.gazetteer.url is required")
	}
	if p.ElasticSearch != nil && (p.ElasticSearch.URL == "" || p.ElasticSearch.Index == "") {
		return fmt.Errorf("providers.elasticSearch.url and index are required")
	}
	if p.Komoot != nil && p.Komoot.URL == "" {
		return fmt.Errorf("providers.komoot.url is required")
	}
	if p.Tree != nil && p.Tree.CatalogPath == "" {
		return fmt.Errorf("providers.tree.catalog_path is required")
	}
	if p.GDI != nil && (p.GDI.URL == "" || p.GDI.Index == "") {
		return fmt.Errorf("providers.gdi.url and index are required")
	}
	if s := p.SemanticTopics; s != nil {
		if s.CatalogPath == "" {
			return fmt.Errorf("providers.semanticTopics.catalog_path is required")
		}
		if s.Model == "" {
			return fmt.Errorf("providers.semanticTopics.model is required")
		}
	}
	for lang, labels := range c.Labels {
		for key := range labels {
			if !hit.Kind(key).IsValid() {
				return fmt.Errorf("labels.%s: unknown hit kind %q", lang, key)
			}
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
