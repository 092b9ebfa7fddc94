// Package komoot searches places with a Photon geocoder.
package komoot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/transport/upstream"
)

// Channel receives the trigger event when a place is selected.
const Channel = "MapMarker"

// Config holds the provider settings.
type Config struct {
	URL        string
	Lang       string
	BBox       string
	MinChars   int
	MaxResults int
}

// Provider implements domain.Provider for Photon.
type Provider struct {
	cfg    Config
	client *upstream.Client
	logger *zap.Logger
}

var _ domain.Provider = (*Provider)(nil)

// New creates a komoot provider.
func New(cfg Config, client *upstream.Client, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, client: client, logger: logger}
}

// Name implements domain.Provider.
func (p *Provider) Name() string { return string(task.Komoot) }

// Tasks implements domain.Provider.
func (p *Provider) Tasks() []task.Task { return []task.Task{task.Komoot} }

// MinChars implements domain.Provider.
func (p *Provider) MinChars() int { return p.cfg.MinChars }

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties properties `json:"properties"`
}

type properties struct {
	OSMID       int64  `json:"osm_id"`
	OSMType     string `json:"osm_type"`
	OSMKey      string `json:"osm_key"`
	OSMValue    string `json:"osm_value"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"housenumber"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	District    string `json:"district"`
	Country     string `json:"country"`
}

// Search implements domain.Provider.
func (p *Provider) Search(ctx context.Context, query string, sink domain.Sink) error {
	params := url.Values{"q": {strings.TrimSpace(query)}}
	if p.cfg.MaxResults > 0 {
		params.Set("limit", strconv.Itoa(p.cfg.MaxResults))
	}
	if p.cfg.Lang != "" {
		params.Set("lang", p.cfg.Lang)
	}
	if p.cfg.BBox != "" {
		params.Set("bbox", p.cfg.BBox)
	}

	var fc featureCollection
	if err := p.client.GetJSON(ctx, upstream.JoinURL(p.cfg.URL, "api"), params, &fc); err != nil {
		return domain.NewProviderError(p.Name(), err)
	}

	hits := make([]hit.Hit, 0, len(fc.Features))
	for i := range fc.Features {
		h, ok := toHit(&fc.Features[i])
		if !ok {
			p.logger.Debug("skipping photon feature without name or point", zap.Int64("osm_id", fc.Features[i].Properties.OSMID))
			continue
		}
		hits = append(hits, h)
	}
	if len(hits) > 0 {
		sink.Push(hit.Relevance, hits...)
	}
	sink.Done(task.Komoot)
	return nil
}

func toHit(f *feature) (hit.Hit, bool) {
	pr := &f.Properties
	name := displayName(pr)
	if name == "" || len(f.Geometry.Coordinates) < 2 {
		return hit.Hit{}, false
	}
	extra := map[string]any{}
	for k, v := range map[string]string{
		"osm_key": pr.OSMKey, "osm_value": pr.OSMValue,
		"city": pr.City, "postcode": pr.Postcode, "district": pr.District, "country": pr.Country,
	} {
		if v != "" {
			extra[k] = v
		}
	}
	return hit.Hit{
		ID:           fmt.Sprintf("%s%d", pr.OSMType, pr.OSMID),
		Name:         name,
		Type:         hit.Known(hit.KindPlace),
		Coordinate:   hit.Point(f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]),
		TriggerEvent: &hit.TriggerEvent{Channel: Channel, Event: "setCenter"},
		Extra:        extra,
	}, true
}

// displayName builds "name, street number, postcode city" from the present parts.
func displayName(pr *properties) string {
	var parts []string
	if pr.Name != "" {
		parts = append(parts, pr.Name)
	}
	if pr.Street != "" {
		parts = append(parts, strings.TrimSpace(pr.Street+" "+pr.HouseNumber))
	}
	if place := strings.TrimSpace(pr.Postcode + " " + pr.City); place != "" && place != pr.Name {
		parts = append(parts, place)
	}
	return strings.Join(parts, ", ")
}
