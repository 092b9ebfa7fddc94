package topics

import (
	"context"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
)

// CatalogSource provides the current layer catalog.
type CatalogSource interface {
	Current() *catalog.Catalog
	Version() uint64
}

// Embedder vectorizes query and topic text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
}
