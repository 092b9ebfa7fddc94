package domain

import (
	"context"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
)

// Sink is the provider-facing side of a search session.
type Sink interface {
	Push(list hit.List, hits ...hit.Hit)
	Remove(list hit.List, f hit.Filter) int
	Done(t task.Task)
}

// Provider is a search backend that contributes hits for a query.
// Search reports results through the sink and may mark its own tasks done
// early; every task of the provider is resolved when Search returns.
type Provider interface {
	Name() string
	Tasks() []task.Task
	MinChars() int
	Search(ctx context.Context, query string, sink Sink) error
}
