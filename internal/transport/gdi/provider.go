// Package gdi searches the spatial data infrastructure (GDI) catalogue for datasets.
package gdi

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/transport/elastic"
)

// Channel receives the trigger event that adds a dataset layer to the map.
const Channel = "GDI"

var searchFields = []string{"name^2", "keywords", "datasets.md_name"}

// Config holds the provider settings.
type Config struct {
	Index      string
	MinChars   int
	MaxResults int
}

// Provider implements domain.Provider. The catalogue ranks its own results,
// so hits go to the original order list unchanged.
type Provider struct {
	cfg    Config
	client *elastic.Client
	logger *zap.Logger
}

var _ domain.Provider = (*Provider)(nil)

// New creates the GDI provider.
func New(cfg Config, client *elastic.Client, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, client: client, logger: logger}
}

// Name implements domain.Provider.
func (p *Provider) Name() string { return string(task.GDI) }

// Tasks implements domain.Provider.
func (p *Provider) Tasks() []task.Task { return []task.Task{task.GDI} }

// MinChars implements domain.Provider.
func (p *Provider) MinChars() int { return p.cfg.MinChars }

// Search implements domain.Provider.
func (p *Provider) Search(ctx context.Context, query string, sink domain.Sink) error {
	body := elastic.MultiMatch(strings.TrimSpace(query), searchFields, "best_fields", p.cfg.MaxResults)
	docs, err := p.client.Search(ctx, p.cfg.Index, body)
	if err != nil {
		return domain.NewProviderError(p.Name(), err)
	}

	hits := make([]hit.Hit, 0, len(docs))
	for i := range docs {
		if h, ok := toHit(&docs[i]); ok {
			hits = append(hits, h)
		}
	}
	if len(hits) > 0 {
		sink.Push(hit.OriginalOrder, hits...)
	}
	sink.Done(task.GDI)
	return nil
}

func toHit(d *elastic.Document) (hit.Hit, bool) {
	name, _ := d.Source["name"].(string)
	if name == "" {
		return hit.Hit{}, false
	}
	id := d.ID
	if v, ok := d.Source["id"]; ok && v != nil {
		id = fmt.Sprint(v)
	}

	extra := map[string]any{"layerId": id}
	if typ, ok := d.Source["typ"].(string); ok && typ != "" {
		extra["service"] = typ
	}
	if ds, ok := d.Source["datasets"].([]any); ok && len(ds) > 0 {
		if first, ok := ds[0].(map[string]any); ok {
			if md, ok := first["md_name"].(string); ok {
				extra["dataset"] = md
			}
		}
	}

	return hit.Hit{
		ID:           id,
		Name:         name,
		Type:         hit.Known(hit.KindDataset),
		TriggerEvent: &hit.TriggerEvent{Channel: Channel, Event: "addLayer"},
		Extra:        extra,
	}, true
}
