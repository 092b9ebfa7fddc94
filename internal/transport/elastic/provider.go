package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

// Config maps index documents onto hits.
type Config struct {
	Index           string
	SearchFields    []string
	IDField         string
	NameField       string
	TypeField       string
	DefaultType     string
	CoordinateField string
	MinChars        int
	MaxResults      int
	// ResolveType maps a stored type value or label to a hit type. Defaults to hit.ParseType.
	ResolveType func(string) hit.Type
}

// Provider implements domain.Provider for attribute search in an index.
type Provider struct {
	cfg    Config
	client *Client
	logger *zap.Logger
}

var _ domain.Provider = (*Provider)(nil)

// NewProvider creates the elastic search provider.
func NewProvider(cfg Config, client *Client, logger *zap.Logger) *Provider {
	if cfg.ResolveType == nil {
		cfg.ResolveType = hit.ParseType
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, client: client, logger: logger}
}

// Name implements domain.Provider.
func (p *Provider) Name() string { return string(task.ElasticSearch) }

// Tasks implements domain.Provider.
func (p *Provider) Tasks() []task.Task { return []task.Task{task.ElasticSearch} }

// MinChars implements domain.Provider.
func (p *Provider) MinChars() int { return p.cfg.MinChars }

// Search implements domain.Provider.
func (p *Provider) Search(ctx context.Context, query string, sink domain.Sink) error {
	body := MultiMatch(strings.TrimSpace(query), p.cfg.SearchFields, "bool_prefix", p.cfg.MaxResults)
	docs, err := p.client.Search(ctx, p.cfg.Index, body)
	if err != nil {
		return domain.NewProviderError(p.Name(), err)
	}

	hits := make([]hit.Hit, 0, len(docs))
	for i := range docs {
		h, ok := p.toHit(&docs[i])
		if !ok {
			p.logger.Debug("skipping document without name", zap.String("id", docs[i].ID))
			continue
		}
		hits = append(hits, h)
	}
	if len(hits) > 0 {
		sink.Push(hit.Relevance, hits...)
	}
	sink.Done(task.ElasticSearch)
	return nil
}

func (p *Provider) toHit(d *Document) (hit.Hit, bool) {
	name := str(d.Source[p.cfg.NameField])
	if name == "" {
		return hit.Hit{}, false
	}
	id := str(d.Source[p.cfg.IDField])
	if id == "" {
		id = d.ID
	}

	typ := hit.Known(hit.KindFeature)
	if v := str(d.Source[p.cfg.TypeField]); p.cfg.TypeField != "" && v != "" {
		typ = p.cfg.ResolveType(v)
	} else if p.cfg.DefaultType != "" {
		typ = p.cfg.ResolveType(p.cfg.DefaultType)
	}

	h := hit.Hit{ID: id, Name: name, Type: typ}
	if p.cfg.CoordinateField != "" {
		if raw, ok := d.Source[p.cfg.CoordinateField]; ok && raw != nil {
			if data, err := json.Marshal(raw); err == nil {
				h.Coordinate = data
			}
		}
	}

	skip := map[string]bool{p.cfg.IDField: true, p.cfg.NameField: true, p.cfg.TypeField: true, p.cfg.CoordinateField: true}
	for k, v := range d.Source {
		if skip[k] {
			continue
		}
		if h.Extra == nil {
			h.Extra = make(map[string]any, len(d.Source))
		}
		h.Extra[k] = v
	}
	return h, true
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
