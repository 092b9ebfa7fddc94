package chi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

func TestPresenterEvent_RecommendedKey(t *testing.T) {
	labels, err := i18n.New(nil, "de")
	if err != nil {
		t.Fatal(err)
	}
	p := presenter{labels: labels, lang: labels.Match("de")}
	zoom := hit.Hit{ID: "a1", Name: "Ringstraße 1", Type: hit.Known(hit.KindAddress)}

	tests := []struct {
		name  string
		event aggregate.Event
		want  string
	}{
		{
			name:  "cleared list",
			event: aggregate.Event{Kind: aggregate.EventRecommendedListChanged, Snapshot: &aggregate.Snapshot{Query: "ring"}},
			want:  `"recommended":[]`,
		},
		{
			name:  "zoom",
			event: aggregate.Event{Kind: aggregate.EventZoomTo, Hit: &zoom},
			want:  `"recommended":null`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(p.event(&tt.event))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("event JSON %s lacks %s", data, tt.want)
			}
		})
	}
}
