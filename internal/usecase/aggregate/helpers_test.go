package aggregate

import (
	"fmt"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

func mkHit(id string, t hit.Type) hit.Hit {
	return hit.Hit{ID: id, Name: "name " + id, Type: t}
}

func mkHits(prefix string, t hit.Type, n int) []hit.Hit {
	out := make([]hit.Hit, n)
	for i := range out {
		out[i] = mkHit(fmt.Sprintf("%s#%d", prefix, i+1), t)
	}
	return out
}

func ids(hits []hit.Hit) []string {
	out := make([]string, len(hits))
	for i := range hits {
		out[i] = hits[i].ID
	}
	return out
}

var (
	tAddress = hit.Known(hit.KindAddress)
	tTopic   = hit.Known(hit.KindTopic)
	tStreet  = hit.Known(hit.KindStreet)
)
