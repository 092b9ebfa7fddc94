package topics

import (
	"context"
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/repository/catalog"
)

// TreeOptions configures the tree provider.
type TreeOptions struct {
	MinChars   int
	MaxResults int
	// Fuzzy switches from pattern matching to subsequence scoring.
	Fuzzy bool
}

// TreeProvider finds topics and folders of the layer tree by name or keyword.
type TreeProvider struct {
	src    CatalogSource
	opts   TreeOptions
	logger *zap.Logger
}

var _ domain.Provider = (*TreeProvider)(nil)

// NewTree creates the tree provider.
func NewTree(src CatalogSource, opts TreeOptions, logger *zap.Logger) *TreeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeProvider{src: src, opts: opts, logger: logger}
}

// Name implements domain.Provider.
func (p *TreeProvider) Name() string { return string(task.Tree) }

// Tasks implements domain.Provider.
func (p *TreeProvider) Tasks() []task.Task { return []task.Task{task.Tree} }

// MinChars implements domain.Provider.
func (p *TreeProvider) MinChars() int { return p.opts.MinChars }

// Search implements domain.Provider. A pattern that does not compile yields no hits.
func (p *TreeProvider) Search(ctx context.Context, query string, sink domain.Sink) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error is returned as-is
	}
	if strings.TrimSpace(query) == "" {
		sink.Done(task.Tree)
		return nil
	}
	entries := p.src.Current().Entries()

	var matched []int
	if p.opts.Fuzzy {
		matched = p.matchFuzzy(query, entries)
	} else {
		re, err := queryPattern(query)
		if err != nil {
			p.logger.Warn("invalid tree search pattern", zap.String("query", query), zap.Error(err))
			sink.Done(task.Tree)
			return nil
		}
		matched = matchPattern(re, entries)
	}

	if p.opts.MaxResults > 0 && len(matched) > p.opts.MaxResults {
		matched = matched[:p.opts.MaxResults]
	}
	hits := make([]hit.Hit, 0, len(matched))
	for _, i := range matched {
		hits = append(hits, entryHit(&entries[i]))
	}
	if len(hits) > 0 {
		sink.Push(hit.Relevance, hits...)
	}
	sink.Done(task.Tree)
	return nil
}

// queryPattern matches the query words in order, case-insensitively, with anything in between.
func queryPattern(query string) (*regexp.Regexp, error) {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile("(?i)" + strings.Join(words, ".*")) //nolint:wrapcheck // caller logs
}

func matchPattern(re *regexp.Regexp, entries []catalog.Entry) []int {
	var out []int
	for i := range entries {
		if re.MatchString(entries[i].Name) {
			out = append(out, i)
			continue
		}
		for _, kw := range entries[i].Keywords {
			if re.MatchString(kw) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

type entrySource []catalog.Entry

func (s entrySource) String(i int) string { return s[i].Name }
func (s entrySource) Len() int            { return len(s) }

func (p *TreeProvider) matchFuzzy(query string, entries []catalog.Entry) []int {
	matches := fuzzy.FindFrom(strings.TrimSpace(query), entrySource(entries))
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Index)
	}
	return out
}
