package hit

import "fmt"

// List names one of the two hit sequences of a search session.
type List string

// Hit lists.
const (
	// Relevance receives hits from providers that rank by relevance.
	Relevance List = "hitList"
	// OriginalOrder receives hits from providers that must keep their own ordering.
	OriginalOrder List = "originalOrderHitList"
)

// ParseList validates a list name. Empty defaults to Relevance.
func ParseList(s string) (List, error) {
	switch List(s) {
	case "", Relevance:
		return Relevance, nil
	case OriginalOrder:
		return OriginalOrder, nil
	}
	return "", fmt.Errorf("unknown hit list %q", s)
}

// Origin tells how a hit reached the store.
type Origin string

// Paste marks hits that came from a pasted coordinate or identifier; the consumer zooms to them.
const Paste Origin = "paste"
