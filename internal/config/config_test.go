package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleYAML = `
http:
  port: 8080
search:
  searchResultOrder: ["address", "Thema", "topic"]
  recommendedListLength: 3
  selectRandomHits: true
labels:
  de:
    topic: Thema
providers:
  gazetteer:
    url: ${GAZ_URL:-https://geodienste.example/gazetteer}
  tree:
    catalog_path: services.yaml
    minChars: 2
  semanticTopics:
    model: text-embedding-3-small
`

func TestParse_Sample(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Search.RecommendedListLength != 3 || !cfg.Search.SelectRandomHits {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Providers.Gazetteer.URL != "https://geodienste.example/gazetteer" {
		t.Errorf("gazetteer url = %q", cfg.Providers.Gazetteer.URL)
	}
	if cfg.Providers.Gazetteer.MinChars != 3 {
		t.Errorf("gazetteer minChars = %d, want default 3", cfg.Providers.Gazetteer.MinChars)
	}
	if cfg.Providers.Tree.MinChars != 2 {
		t.Errorf("tree minChars = %d", cfg.Providers.Tree.MinChars)
	}
	if cfg.Providers.SemanticTopics.CatalogPath != "services.yaml" {
		t.Errorf("semantic catalog should default to tree catalog, got %q", cfg.Providers.SemanticTopics.CatalogPath)
	}
	want := []string{"gazetteer", "tree", "semanticTopics"}
	if got := cfg.Providers.ActiveKeys(); !reflect.DeepEqual(got, want) {
		t.Errorf("ActiveKeys() = %v, want %v", got, want)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("GAZ_URL", "http://localhost:9000")
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Providers.Gazetteer.URL != "http://localhost:9000" {
		t.Errorf("url = %q", cfg.Providers.Gazetteer.URL)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()

	if cfg.Search.RecommendedListLength != 5 {
		t.Errorf("recommendedListLength = %d, want 5", cfg.Search.RecommendedListLength)
	}
	if cfg.Search.MinChars != 3 {
		t.Errorf("minChars = %d, want 3", cfg.Search.MinChars)
	}
	if cfg.Cache.Enabled() {
		t.Error("cache must be disabled without addrs")
	}
	if cfg.Resilience.BreakerEnabled == nil || !*cfg.Resilience.BreakerEnabled {
		t.Error("breaker must default to enabled")
	}
	if len(cfg.Providers.ActiveKeys()) != 0 {
		t.Error("no providers expected")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 0}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_ProviderRequirements(t *testing.T) {
	tests := []struct {
		name      string
		providers ProvidersConfig
		want      string
	}{
		{"gazetteer url", ProvidersConfig{Gazetteer: &GazetteerConfig{}}, "providers.gazetteer.url is required"},
		{"elastic index", ProvidersConfig{ElasticSearch: &ElasticConfig{URL: "http://es"}},
			"providers.elasticSearch.url and index are required"},
		{"komoot url", ProvidersConfig{Komoot: &KomootConfig{}}, "providers.komoot.url is required"},
		{"tree catalog", ProvidersConfig{Tree: &TreeConfig{}}, "providers.tree.catalog_path is required"},
		{"gdi", ProvidersConfig{GDI: &GDIConfig{URL: "http://gdi"}}, "providers.gdi.url and index are required"},
		{"semantic model", ProvidersConfig{SemanticTopics: &SemanticConfig{CatalogPath: "x"}},
			"providers.semanticTopics.model is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{HTTP: HTTPConfig{Port: 8080}, Providers: tt.providers}
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_UnknownLabelKind(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Labels: LabelsConfig{"de": {"planet": "Planet"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PS_SET", "value")
	got := string(expandEnvVars([]byte("a=${PS_SET} b=${PS_UNSET:-fallback} c=${PS_UNSET}")))
	if got != "a=value b=fallback c=" {
		t.Errorf("expandEnvVars = %q", got)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Providers.Tree == nil || cfg.Providers.Tree.CatalogPath == "" {
		t.Fatal("local config must enable the topic tree")
	}
	if cfg.Cache.Enabled() {
		t.Error("local config must run without a cache")
	}
}
