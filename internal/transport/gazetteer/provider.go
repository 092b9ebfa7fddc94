// Package gazetteer searches streets, house numbers and districts in an address gazetteer.
package gazetteer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/transport/upstream"
)

// Channel receives the trigger event when an address hit is selected.
const Channel = "MapMarker"

// Query types understood by the gazetteer search endpoint.
const (
	queryStreetsOrHouseNumbers = "streetsOrHouseNumbers"
	queryStreetKeys            = "streetKeys"
)

// Config holds the provider settings.
type Config struct {
	URL        string
	MinChars   int
	MaxResults int
}

// Provider implements domain.Provider. One search runs two sub-queries in
// parallel and each resolves its own initial-search task.
type Provider struct {
	cfg    Config
	client *upstream.Client
	logger *zap.Logger
}

var _ domain.Provider = (*Provider)(nil)

// New creates a gazetteer provider.
func New(cfg Config, client *upstream.Client, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, client: client, logger: logger}
}

// Name implements domain.Provider.
func (p *Provider) Name() string { return string(task.Gazetteer) }

// Tasks implements domain.Provider.
func (p *Provider) Tasks() []task.Task { return task.Gazetteer.Subtasks() }

// MinChars implements domain.Provider.
func (p *Provider) MinChars() int { return p.cfg.MinChars }

type response struct {
	Results []result `json:"results"`
}

type result struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Coordinate  []float64 `json:"coordinate"`
	StreetKey   string    `json:"streetKey"`
	District    string    `json:"district"`
	Postcode    string    `json:"postcode"`
	HouseNumber string    `json:"houseNumber"`
}

// Search implements domain.Provider. A failing sub-query does not discard the
// other one's hits; the first error is returned after both finish.
func (p *Provider) Search(ctx context.Context, query string, sink domain.Sink) error {
	q := strings.TrimSpace(query)
	var g errgroup.Group
	g.Go(func() error {
		return p.subquery(ctx, q, queryStreetsOrHouseNumbers, task.GazetteerStreetsOrHouseNumbers, sink)
	})
	g.Go(func() error {
		return p.subquery(ctx, q, queryStreetKeys, task.GazetteerStreetKeys, sink)
	})
	if err := g.Wait(); err != nil {
		return domain.NewProviderError(p.Name(), err)
	}
	return nil
}

func (p *Provider) subquery(ctx context.Context, q, kind string, t task.Task, sink domain.Sink) error {
	params := url.Values{"q": {q}, "type": {kind}}
	if p.cfg.MaxResults > 0 {
		params.Set("limit", strconv.Itoa(p.cfg.MaxResults))
	}

	var resp response
	if err := p.client.GetJSON(ctx, upstream.JoinURL(p.cfg.URL, "search"), params, &resp); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}

	hits := make([]hit.Hit, 0, len(resp.Results))
	for i := range resp.Results {
		h, ok := toHit(&resp.Results[i], kind)
		if !ok {
			p.logger.Debug("skipping gazetteer result", zap.String("query_type", kind), zap.String("id", resp.Results[i].ID))
			continue
		}
		hits = append(hits, h)
	}
	if len(hits) > 0 {
		sink.Push(hit.Relevance, hits...)
	}
	sink.Done(t)
	return nil
}

func toHit(r *result, kind string) (hit.Hit, bool) {
	if r.Name == "" {
		return hit.Hit{}, false
	}
	var typ hit.Type
	switch {
	case kind == queryStreetKeys:
		typ = hit.Known(hit.KindStreet)
	case hit.Kind(r.Type) == hit.KindStreet, hit.Kind(r.Type) == hit.KindHouseNumber, hit.Kind(r.Type) == hit.KindDistrict:
		typ = hit.Known(hit.Kind(r.Type))
	default:
		return hit.Hit{}, false
	}

	id := r.ID
	if id == "" {
		id = typ.Key() + ":" + r.Name
	}
	h := hit.Hit{
		ID:           id,
		Name:         r.Name,
		Type:         typ,
		TriggerEvent: &hit.TriggerEvent{Channel: Channel, Event: "zoomToAddress"},
	}
	if len(r.Coordinate) >= 2 {
		h.Coordinate = hit.Point(r.Coordinate[0], r.Coordinate[1])
	}
	for k, v := range map[string]string{
		"streetKey": r.StreetKey, "district": r.District, "postcode": r.Postcode, "houseNumber": r.HouseNumber,
	} {
		if v == "" {
			continue
		}
		if h.Extra == nil {
			h.Extra = make(map[string]any, 4)
		}
		h.Extra[k] = v
	}
	return h, true
}
