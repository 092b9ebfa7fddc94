package aggregate

import "github.com/kailas-cloud/portalsearch/internal/domain/hit"

// Store holds the raw hits of one search session in two append-only lists.
// Every mutation bumps the version so that aggregation passes can be cached.
type Store struct {
	relevance []hit.Hit
	original  []hit.Hit
	version   uint64
}

func (s *Store) slot(list hit.List) *[]hit.Hit {
	switch list {
	case hit.Relevance:
		return &s.relevance
	case hit.OriginalOrder:
		return &s.original
	}
	return nil
}

// Push appends hits to the named list. Unknown lists are ignored.
func (s *Store) Push(list hit.List, hits ...hit.Hit) int {
	dst := s.slot(list)
	if dst == nil || len(hits) == 0 {
		return 0
	}
	*dst = append(*dst, hits...)
	s.version++
	return len(hits)
}

// Remove deletes every hit of the named list selected by f and returns how many were removed.
// Exact-value filters scan in reverse index order; remaining hits keep their order either way.
func (s *Store) Remove(list hit.List, f hit.Filter) int {
	dst := s.slot(list)
	if dst == nil || f.IsZero() || len(*dst) == 0 {
		return 0
	}

	removed := 0
	if f.IsExact() {
		hits := *dst
		for i := len(hits) - 1; i >= 0; i-- {
			if f.Matches(&hits[i]) {
				hits = append(hits[:i], hits[i+1:]...)
				removed++
			}
		}
		*dst = hits
	} else {
		kept := (*dst)[:0]
		for i := range *dst {
			if f.Matches(&(*dst)[i]) {
				removed++
				continue
			}
			kept = append(kept, (*dst)[i])
		}
		// drop references held past the new length
		clear((*dst)[len(kept):])
		*dst = kept
	}

	if removed > 0 {
		s.version++
	}
	return removed
}

// Clear empties both lists.
func (s *Store) Clear() {
	s.relevance = nil
	s.original = nil
	s.version++
}

// Len returns the number of hits in the named list.
func (s *Store) Len(list hit.List) int {
	if dst := s.slot(list); dst != nil {
		return len(*dst)
	}
	return 0
}

// Hits returns a copy of the named list.
func (s *Store) Hits(list hit.List) []hit.Hit {
	dst := s.slot(list)
	if dst == nil {
		return nil
	}
	out := make([]hit.Hit, len(*dst))
	copy(out, *dst)
	return out
}

// Final returns the relevance list followed by the original-order list.
func (s *Store) Final() []hit.Hit {
	out := make([]hit.Hit, 0, len(s.relevance)+len(s.original))
	out = append(out, s.relevance...)
	return append(out, s.original...)
}

// Version returns the mutation counter.
func (s *Store) Version() uint64 { return s.version }
