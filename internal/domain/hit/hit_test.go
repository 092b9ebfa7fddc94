package hit

import (
	"encoding/json"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in    string
		known bool
		key   string
	}{
		{"address", true, "address"},
		{" topic ", true, "topic"},
		{"Adresse", false, "Adresse"},
		{"Address", false, "Address"},
		{"", false, ""},
	}
	for _, tt := range tests {
		got := ParseType(tt.in)
		if got.IsKnown() != tt.known {
			t.Errorf("ParseType(%q).IsKnown() = %v, want %v", tt.in, got.IsKnown(), tt.known)
		}
		if got.Key() != tt.key {
			t.Errorf("ParseType(%q).Key() = %q, want %q", tt.in, got.Key(), tt.key)
		}
	}
}

func TestType_Comparable(t *testing.T) {
	if Known(KindTopic) != ParseType("topic") {
		t.Error("Known(topic) should equal ParseType(topic)")
	}
	if Other("topic") == Known(KindTopic) {
		t.Error("Other(topic) must not equal Known(topic)")
	}
}

func TestHit_Field(t *testing.T) {
	h := Hit{
		ID: "7", Name: "Rathausmarkt", Type: Known(KindStreet),
		Extra: map[string]any{"zip": 20095, "metaName": "Gazetteer"},
	}
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"id", "7", true},
		{"name", "Rathausmarkt", true},
		{"type", "street", true},
		{"zip", "20095", true},
		{"metaName", "Gazetteer", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := h.Field(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Field(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHit_Equal(t *testing.T) {
	a := Hit{ID: "1", Name: "a", Type: Known(KindTopic), Coordinate: Point(1, 2),
		TriggerEvent: &TriggerEvent{Channel: "Tree", Event: "open"}, Extra: map[string]any{"icon": "x"}}
	b := a
	b.TriggerEvent = &TriggerEvent{Channel: "Tree", Event: "open"}
	b.Extra = map[string]any{"icon": "x"}
	if !a.Equal(&b) {
		t.Error("expected equal hits")
	}

	b.Extra["icon"] = "y"
	if a.Equal(&b) {
		t.Error("expected different extras to compare unequal")
	}

	c := a
	c.TriggerEvent = nil
	if a.Equal(&c) {
		t.Error("expected nil trigger event to compare unequal")
	}
}

func TestFilter_MatchFields(t *testing.T) {
	f, err := MatchFields(map[string]string{"type": "street", "name": "Elbchaussee"})
	if err != nil {
		t.Fatalf("MatchFields: %v", err)
	}
	match := Hit{Name: "Elbchaussee", Type: Known(KindStreet)}
	other := Hit{Name: "Elbchaussee", Type: Known(KindDistrict)}
	if !f.Matches(&match) {
		t.Error("expected match")
	}
	if f.Matches(&other) {
		t.Error("expected no match for different type")
	}
}

func TestFilter_MatchFieldsEmpty(t *testing.T) {
	if _, err := MatchFields(nil); err != ErrEmptyFilter {
		t.Fatalf("expected ErrEmptyFilter, got %v", err)
	}
}

func TestFilter_ZeroMatchesNothing(t *testing.T) {
	var f Filter
	if !f.IsZero() {
		t.Error("zero filter should report IsZero")
	}
	if f.Matches(&Hit{ID: "1"}) {
		t.Error("zero filter must not match")
	}
}

func TestFilter_PredicateAndEqual(t *testing.T) {
	h := Hit{ID: "1", Name: "x", Type: Other("custom")}
	if !Predicate(func(h Hit) bool { return h.ID == "1" }).Matches(&h) {
		t.Error("predicate should match")
	}
	eq := Equal(h)
	if !eq.IsExact() || !eq.Matches(&h) {
		t.Error("equal filter should match identical hit")
	}
	h2 := h
	h2.Name = "y"
	if eq.Matches(&h2) {
		t.Error("equal filter should not match a different hit")
	}
}

func TestParseList(t *testing.T) {
	for in, want := range map[string]List{"": Relevance, "hitList": Relevance, "originalOrderHitList": OriginalOrder} {
		got, err := ParseList(in)
		if err != nil || got != want {
			t.Errorf("ParseList(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseList("bogus"); err == nil {
		t.Error("expected error for unknown list")
	}
}

func TestHit_JSON(t *testing.T) {
	in := []Hit{
		{ID: "1", Name: "Main St", Type: Known(KindStreet), Coordinate: Point(10, 53.5)},
		{ID: "2", Name: "Clinic", Type: Other("Krankenhaus"), Extra: map[string]any{"district": "Altona"}},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Hit
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out[0].Type != Known(KindStreet) || out[1].Type != Other("Krankenhaus") {
		t.Errorf("types did not survive encoding: %v, %v", out[0].Type, out[1].Type)
	}
	if !out[0].Equal(&in[0]) || !out[1].Equal(&in[1]) {
		t.Errorf("hits differ after encoding: %+v", out)
	}
}
