package domain

import (
	"context"
	"fmt"
	"math"
)

// Vector is a dense text embedding.
type Vector []float32

// Cosine returns the cosine similarity of v and o, or 0 when either is empty,
// zero or the dimensions differ.
func (v Vector) Cosine(o Vector) float64 {
	if len(v) == 0 || len(v) != len(o) {
		return 0
	}
	var dot, nv, no float64
	for i := range v {
		a, b := float64(v[i]), float64(o[i])
		dot += a * b
		nv += a * a
		no += b * b
	}
	if nv == 0 || no == 0 {
		return 0
	}
	return dot / (math.Sqrt(nv) * math.Sqrt(no))
}

// Embedder vectorizes query text for semantic topic search.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// BatchEmbedder vectorizes multiple texts in a single call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([]Vector, error)
}

// EmbedAll uses the native batch call when e supports it and falls back to one call per text.
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([]Vector, error) {
	if be, ok := e.(BatchEmbedder); ok {
		out, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}
		return out, nil
	}
	out := make([]Vector, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed [%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// PrefixedEmbedder prepends a model-specific instruction (e.g. "query: ") to each text.
type PrefixedEmbedder struct {
	inner  Embedder
	prefix string
}

// NewPrefixedEmbedder wraps inner. An empty prefix is a pass-through.
func NewPrefixedEmbedder(inner Embedder, prefix string) *PrefixedEmbedder {
	return &PrefixedEmbedder{inner: inner, prefix: prefix}
}

// Embed implements Embedder.
func (e *PrefixedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	v, err := e.inner.Embed(ctx, e.prefix+text)
	if err != nil {
		return nil, fmt.Errorf("prefixed embed: %w", err)
	}
	return v, nil
}

// BatchEmbed implements BatchEmbedder.
func (e *PrefixedEmbedder) BatchEmbed(ctx context.Context, texts []string) ([]Vector, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.prefix + t
	}
	return EmbedAll(ctx, e.inner, prefixed)
}
