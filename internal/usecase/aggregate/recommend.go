package aggregate

import (
	"math/rand/v2"
	"sort"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

// DefaultRecommendedLength is the recommended list bound when none is configured.
const DefaultRecommendedLength = 5

type pick struct {
	group int
	hit   hit.Hit
}

// Select builds the recommended list. Stratified sampling is used only when
// random is set and there are more hits than fit into the list.
func Select(groups []hit.TypeGroup, limit, total int, random bool, rng *rand.Rand) []hit.Hit {
	if limit <= 0 {
		limit = DefaultRecommendedLength
	}
	if random && total > limit && rng != nil {
		return SelectStratified(groups, limit, rng)
	}
	return SelectRoundRobin(groups, limit)
}

// SelectRoundRobin takes the i-th hit of every group in turn until limit is
// reached, then orders the result by group.
func SelectRoundRobin(groups []hit.TypeGroup, limit int) []hit.Hit {
	return byGroup(roundRobin(groups, limit))
}

func roundRobin(groups []hit.TypeGroup, limit int) []pick {
	var picks []pick
	for i := 0; i < limit && len(picks) < limit; i++ {
		for g := range groups {
			if len(picks) >= limit {
				break
			}
			if i < len(groups[g].Hits) {
				picks = append(picks, pick{group: g, hit: groups[g].Hits[i]})
			}
		}
	}
	return picks
}

// SelectStratified cycles through the groups and draws one random, not yet
// drawn hit from each until limit hits are collected or all groups run dry.
// Exhausted groups leave the rotation.
func SelectStratified(groups []hit.TypeGroup, limit int, rng *rand.Rand) []hit.Hit {
	type bucket struct {
		group     int
		remaining []int
	}

	var active []*bucket
	total := 0
	for g := range groups {
		n := len(groups[g].Hits)
		if n == 0 {
			continue
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		active = append(active, &bucket{group: g, remaining: idx})
		total += n
	}
	if limit > total {
		limit = total
	}

	picks := make([]pick, 0, limit)
	cursor := 0
	for len(picks) < limit && len(active) > 0 {
		b := active[cursor%len(active)]
		j := rng.IntN(len(b.remaining))
		picks = append(picks, pick{group: b.group, hit: groups[b.group].Hits[b.remaining[j]]})

		last := len(b.remaining) - 1
		b.remaining[j] = b.remaining[last]
		b.remaining = b.remaining[:last]

		if len(b.remaining) == 0 {
			pos := cursor % len(active)
			active = append(active[:pos], active[pos+1:]...)
			// the next bucket slides into pos, so the cursor stays
			if len(active) > 0 {
				cursor = pos
			}
			continue
		}
		cursor++
	}
	return byGroup(picks)
}

func byGroup(picks []pick) []hit.Hit {
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].group < picks[j].group })
	out := make([]hit.Hit, len(picks))
	for i := range picks {
		out[i] = picks[i].hit
	}
	return out
}
