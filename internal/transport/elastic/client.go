// Package elastic searches an Elasticsearch-compatible index.
package elastic

import (
	"context"

	"github.com/kailas-cloud/portalsearch/internal/transport/upstream"
)

// Document is a single search hit.
type Document struct {
	ID     string
	Score  float64
	Source map[string]any
}

// Client runs _search requests against one cluster.
type Client struct {
	url    string
	client *upstream.Client
}

// NewClient creates a search client for the cluster at url.
func NewClient(url string, client *upstream.Client) *Client {
	return &Client{url: url, client: client}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// MultiMatch builds a multi_match query body.
func MultiMatch(query string, fields []string, matchType string, size int) map[string]any {
	mm := map[string]any{
		"query":    query,
		"fields":   fields,
		"operator": "and",
	}
	if matchType != "" {
		mm["type"] = matchType
	}
	return map[string]any{
		"size":  size,
		"query": map[string]any{"multi_match": mm},
	}
}

// Search posts body to <url>/<index>/_search and returns the hits in response order.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) ([]Document, error) {
	var resp searchResponse
	if err := c.client.PostJSON(ctx, upstream.JoinURL(c.url, index, "_search"), body, &resp); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with the provider name
	}
	docs := make([]Document, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		docs = append(docs, Document{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return docs, nil
}
