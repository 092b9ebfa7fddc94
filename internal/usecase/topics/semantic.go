package topics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
)

// SemanticOptions configures the semantic provider.
type SemanticOptions struct {
	MinChars   int
	MaxResults int
	// MinScore drops topics whose cosine similarity is below it.
	MinScore float64
	// QueryPrefix and DocumentPrefix are model instructions prepended to
	// queries and topic texts, e.g. "query: " and "passage: ".
	QueryPrefix    string
	DocumentPrefix string
}

// SemanticProvider ranks catalog topics by embedding similarity to the query.
type SemanticProvider struct {
	src      CatalogSource
	query    Embedder
	docs     Embedder
	opts     SemanticOptions
	logger   *zap.Logger

	mu  sync.Mutex
	idx *semanticIndex
}

type semanticIndex struct {
	version uint64
	entries []catalog.Entry
	vecs    []domain.Vector
}

var _ domain.Provider = (*SemanticProvider)(nil)

// NewSemantic creates the semantic provider. Topic vectors are computed on first use
// and again after every catalog reload.
func NewSemantic(src CatalogSource, embedder Embedder, opts SemanticOptions, logger *zap.Logger) *SemanticProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticProvider{
		src:    src,
		query:  domain.NewPrefixedEmbedder(embedder, opts.QueryPrefix),
		docs:   domain.NewPrefixedEmbedder(embedder, opts.DocumentPrefix),
		opts:   opts,
		logger: logger,
	}
}

// Name implements domain.Provider.
func (p *SemanticProvider) Name() string { return string(task.SemanticTopics) }

// Tasks implements domain.Provider.
func (p *SemanticProvider) Tasks() []task.Task { return []task.Task{task.SemanticTopics} }

// MinChars implements domain.Provider.
func (p *SemanticProvider) MinChars() int { return p.opts.MinChars }

// Search implements domain.Provider.
func (p *SemanticProvider) Search(ctx context.Context, query string, sink domain.Sink) error {
	idx, err := p.index(ctx)
	if err != nil {
		return domain.NewProviderError(p.Name(), err)
	}
	qv, err := p.query.Embed(ctx, query)
	if err != nil {
		return domain.NewProviderError(p.Name(), fmt.Errorf("embed query: %w", err))
	}

	type scored struct {
		i     int
		score float64
	}
	var ranked []scored
	for i, v := range idx.vecs {
		if s := qv.Cosine(v); s >= p.opts.MinScore {
			ranked = append(ranked, scored{i: i, score: s})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })
	if p.opts.MaxResults > 0 && len(ranked) > p.opts.MaxResults {
		ranked = ranked[:p.opts.MaxResults]
	}

	hits := make([]hit.Hit, 0, len(ranked))
	for _, r := range ranked {
		h := entryHit(&idx.entries[r.i])
		if h.Extra == nil {
			h.Extra = map[string]any{}
		}
		h.Extra["score"] = r.score
		hits = append(hits, h)
	}
	if len(hits) > 0 {
		sink.Push(hit.Relevance, hits...)
	}
	sink.Done(task.SemanticTopics)
	return nil
}

// index returns topic vectors for the current catalog version.
func (p *SemanticProvider) index(ctx context.Context) (*semanticIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	version := p.src.Version()
	if p.idx != nil && p.idx.version == version {
		return p.idx, nil
	}

	var entries []catalog.Entry
	var texts []string
	for _, e := range p.src.Current().Entries() {
		if e.Kind != hit.KindTopic {
			continue
		}
		entries = append(entries, e)
		texts = append(texts, e.Text)
	}
	vecs, err := domain.EmbedAll(ctx, p.docs, texts)
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}
	p.idx = &semanticIndex{version: version, entries: entries, vecs: vecs}
	p.logger.Info("semantic topic index built", zap.Int("topics", len(entries)), zap.Uint64("catalog_version", version))
	return p.idx, nil
}
