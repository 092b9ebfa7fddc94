package chi

import (
	"golang.org/x/text/language"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
	sessionuc "github.com/kailas-cloud/portalsearch/internal/usecase/session"
)

// presenter renders domain values with labels of one negotiated language.
type presenter struct {
	labels *i18n.Labels
	lang   language.Tag
}

func (p presenter) hit(h *hit.Hit) HitResource {
	return HitResource{
		ID:           h.ID,
		Name:         h.Name,
		Type:         h.Type.Key(),
		Label:        p.labels.Label(h.Type, p.lang),
		Coordinate:   h.Coordinate,
		TriggerEvent: h.TriggerEvent,
		Extra:        h.Extra,
	}
}

func (p presenter) hits(hs []hit.Hit) []HitResource {
	out := make([]HitResource, 0, len(hs))
	for i := range hs {
		out = append(out, p.hit(&hs[i]))
	}
	return out
}

func (p presenter) session(v *sessionuc.View) SessionResource {
	res := SessionResource{
		ID:          v.ID,
		Query:       v.Snapshot.Query,
		Generation:  v.Snapshot.Generation,
		Initial:     v.Snapshot.Initial.String(),
		Recommended: p.hits(v.Snapshot.Recommended),
		Total:       len(v.Snapshot.Final),
	}
	for _, t := range v.Pending {
		res.Pending = append(res.Pending, string(t))
	}
	return res
}

func (p presenter) groups(gs []hit.TypeGroup) GroupsResponse {
	out := GroupsResponse{Groups: make([]GroupResource, 0, len(gs))}
	for _, g := range gs {
		out.Groups = append(out.Groups, GroupResource{
			Type:  g.Type.Key(),
			Label: p.labels.Label(g.Type, p.lang),
			Count: len(g.Hits),
			Hits:  p.hits(g.Hits),
		})
	}
	return out
}

func (p presenter) event(e *aggregate.Event) EventResource {
	res := EventResource{Kind: string(e.Kind)}
	if e.Snapshot != nil {
		res.Query = e.Snapshot.Query
		res.Generation = e.Snapshot.Generation
		res.Initial = e.Snapshot.Initial.String()
		res.Recommended = p.hits(e.Snapshot.Recommended)
		res.Total = len(e.Snapshot.Final)
	}
	if e.Hit != nil {
		h := p.hit(e.Hit)
		res.Hit = &h
	}
	if e.Dismiss > 0 {
		res.DismissMS = e.Dismiss.Milliseconds()
	}
	return res
}

// parseHit turns an incoming resource into a hit, resolving its type by key or label.
func (p presenter) parseHit(r *HitResource) hit.Hit {
	return hit.Hit{
		ID:           r.ID,
		Name:         r.Name,
		Type:         p.labels.Resolve(r.Type),
		Coordinate:   r.Coordinate,
		TriggerEvent: r.TriggerEvent,
		Extra:        r.Extra,
	}
}
