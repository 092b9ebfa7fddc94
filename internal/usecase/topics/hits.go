// Package topics searches the layer catalog: by name pattern, fuzzily, or by embedding similarity.
package topics

import (
	"strings"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
)

// TreeChannel is the consumer channel that opens layers and folders in the layer tree.
const TreeChannel = "Tree"

// Trigger events sent on selection.
const (
	EventActivateLayer = "activateLayer"
	EventOpenFolder    = "openFolder"
)

func entryHit(e *catalog.Entry) hit.Hit {
	event := EventActivateLayer
	if e.Kind == hit.KindFolder {
		event = EventOpenFolder
	}
	h := hit.Hit{
		ID:           e.ID,
		Name:         e.Name,
		Type:         hit.Known(e.Kind),
		TriggerEvent: &hit.TriggerEvent{Channel: TreeChannel, Event: event},
	}
	if len(e.Path) > 0 {
		h.Extra = map[string]any{"path": strings.Join(e.Path, " > ")}
	}
	return h
}
