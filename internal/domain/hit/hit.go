package hit

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// TriggerEvent is an opaque callback descriptor invoked by the consumer on selection.
type TriggerEvent struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
}

// Hit is a single search result candidate pushed by a provider.
type Hit struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         Type            `json:"type"`
	Coordinate   json.RawMessage `json:"coordinate,omitempty"`
	TriggerEvent *TriggerEvent   `json:"triggerEvent,omitempty"`
	Extra        map[string]any  `json:"extra,omitempty"`
}

// Point encodes a 2D coordinate.
func Point(x, y float64) json.RawMessage {
	data, _ := json.Marshal([2]float64{x, y})
	return data
}

// Field returns the string form of a named field. Known names are id, name and type,
// anything else is looked up in Extra.
func (h *Hit) Field(name string) (string, bool) {
	switch name {
	case "id":
		return h.ID, true
	case "name":
		return h.Name, true
	case "type":
		return h.Type.Key(), true
	}
	v, ok := h.Extra[name]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// Equal reports whether two hits carry identical values.
func (h *Hit) Equal(o *Hit) bool {
	if h.ID != o.ID || h.Name != o.Name || h.Type != o.Type {
		return false
	}
	if string(h.Coordinate) != string(o.Coordinate) {
		return false
	}
	if (h.TriggerEvent == nil) != (o.TriggerEvent == nil) {
		return false
	}
	if h.TriggerEvent != nil && *h.TriggerEvent != *o.TriggerEvent {
		return false
	}
	if len(h.Extra) == 0 && len(o.Extra) == 0 {
		return true
	}
	return reflect.DeepEqual(h.Extra, o.Extra)
}

// TypeGroup holds all hits of one type in arrival order.
type TypeGroup struct {
	Type Type
	Hits []Hit
}
