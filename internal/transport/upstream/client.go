// Package upstream is the JSON-over-HTTP client shared by the search providers.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kailas-cloud/portalsearch/internal/resilience"
)

const maxErrorBodyBytes = 8 * 1024

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	// Guard wraps every request; nil sends requests unguarded.
	Guard     *resilience.Guard
	Username  string
	Password  string
	UserAgent string
}

// Client sends JSON requests to one upstream service.
type Client struct {
	http      *http.Client
	guard     *resilience.Guard
	username  string
	password  string
	userAgent string
}

// New creates a client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "portalsearch"
	}
	return &Client{
		http:      hc,
		guard:     opts.Guard,
		username:  opts.Username,
		password:  opts.Password,
		userAgent: ua,
	}
}

// JoinURL appends path segments to a base URL.
func JoinURL(base string, segments ...string) string {
	out := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, s := range segments {
		out += "/" + strings.Trim(s, "/")
	}
	return out
}

// GetJSON sends a GET with query parameters and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return c.do(ctx, http.MethodGet, u.String(), nil, out)
}

// PostJSON encodes body, sends it and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	return c.guard.Do(ctx, func(ctx context.Context) error { //nolint:wrapcheck // guard adds the operation name
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, redact(endpoint), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			return &resilience.StatusError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(raw)),
			}
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// redact drops the query string so search terms stay out of error messages.
func redact(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
