package session

import (
	"time"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

// Settings are the ranking settings applied to newly opened sessions.
type Settings struct {
	Preferred        []hit.Type
	Recommended      int
	RandomHits       bool
	NoResultsDismiss time.Duration
}

func (s *Settings) clone() *Settings {
	cp := *s
	cp.Preferred = append([]hit.Type(nil), s.Preferred...)
	return &cp
}
