package aggregate

import "github.com/kailas-cloud/portalsearch/internal/domain/hit"

// Partition groups hits by type. Types listed in preferred come first in that
// order, the rest follow in order of first occurrence. Hits keep their relative order.
func Partition(hits []hit.Hit, preferred []hit.Type) []hit.TypeGroup {
	if len(hits) == 0 {
		return nil
	}

	index := make(map[hit.Type]int)
	var seen []hit.Type
	for i := range hits {
		t := hits[i].Type
		if _, ok := index[t]; ok {
			continue
		}
		index[t] = len(seen)
		seen = append(seen, t)
	}

	ordered := make([]hit.Type, 0, len(seen))
	placed := make(map[hit.Type]bool, len(seen))
	for _, t := range preferred {
		if _, ok := index[t]; ok && !placed[t] {
			ordered = append(ordered, t)
			placed[t] = true
		}
	}
	for _, t := range seen {
		if !placed[t] {
			ordered = append(ordered, t)
		}
	}

	groups := make([]hit.TypeGroup, len(ordered))
	pos := make(map[hit.Type]int, len(ordered))
	for i, t := range ordered {
		groups[i].Type = t
		pos[t] = i
	}
	for i := range hits {
		g := &groups[pos[hits[i].Type]]
		g.Hits = append(g.Hits, hits[i])
	}
	return groups
}
