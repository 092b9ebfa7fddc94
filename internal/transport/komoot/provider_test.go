package komoot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/transport/upstream"
)

type recordingSink struct {
	list hit.List
	hits []hit.Hit
	done []task.Task
}

func (s *recordingSink) Push(list hit.List, hits ...hit.Hit) {
	s.list = list
	s.hits = append(s.hits, hits...)
}
func (s *recordingSink) Remove(hit.List, hit.Filter) int { return 0 }
func (s *recordingSink) Done(t task.Task)                { s.done = append(s.done, t) }

const photonResponse = `{
  "type": "FeatureCollection",
  "features": [
    {"geometry": {"type": "Point", "coordinates": [9.9937, 53.5511]},
     "properties": {"osm_id": 62782, "osm_type": "R", "osm_key": "place", "osm_value": "city",
                    "name": "Hamburg", "country": "Deutschland"}},
    {"geometry": {"type": "Point", "coordinates": [10.0067, 53.5526]},
     "properties": {"osm_id": 123, "osm_type": "N", "street": "Steintorwall", "housenumber": "20",
                    "postcode": "20095", "city": "Hamburg"}},
    {"geometry": {"type": "Point", "coordinates": []},
     "properties": {"osm_id": 9, "osm_type": "W", "name": "broken"}}
  ]
}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/api" || q.Get("q") != "hamburg" || q.Get("limit") != "10" || q.Get("lang") != "de" || q.Get("bbox") != "9.7,53.3,10.3,53.8" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(photonResponse))
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL, Lang: "de", BBox: "9.7,53.3,10.3,53.8", MaxResults: 10, MinChars: 3}, upstream.New(upstream.Options{}), nil)
	sink := &recordingSink{}
	if err := p.Search(context.Background(), " hamburg ", sink); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(sink.hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(sink.hits))
	}
	if sink.list != hit.Relevance {
		t.Errorf("pushed into %s", sink.list)
	}
	city := sink.hits[0]
	if city.ID != "R62782" || city.Name != "Hamburg" || city.Type != hit.Known(hit.KindPlace) {
		t.Errorf("unexpected city hit %+v", city)
	}
	if string(city.Coordinate) != "[9.9937,53.5511]" {
		t.Errorf("coordinate = %s", city.Coordinate)
	}
	if v, _ := city.Field("osm_value"); v != "city" {
		t.Errorf("osm_value = %q", v)
	}
	if addr := sink.hits[1].Name; addr != "Steintorwall 20, 20095 Hamburg" {
		t.Errorf("address name = %q", addr)
	}
	if len(sink.done) != 1 || sink.done[0] != task.Komoot {
		t.Errorf("done = %v", sink.done)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, upstream.New(upstream.Options{}), nil)
	sink := &recordingSink{}
	err := p.Search(context.Background(), "hamburg", sink)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(sink.hits) != 0 || len(sink.done) != 0 {
		t.Errorf("failed search must not push or mark done itself")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		pr   properties
		want string
	}{
		{properties{Name: "Hamburg", City: "Hamburg"}, "Hamburg"},
		{properties{Name: "Elbphilharmonie", Street: "Platz der Deutschen Einheit", HouseNumber: "4", Postcode: "20457", City: "Hamburg"},
			"Elbphilharmonie, Platz der Deutschen Einheit 4, 20457 Hamburg"},
		{properties{}, ""},
	}
	for _, tt := range tests {
		if got := displayName(&tt.pr); got != tt.want {
			t.Errorf("displayName(%+v) = %q, want %q", tt.pr, got, tt.want)
		}
	}
}
