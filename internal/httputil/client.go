// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Client is a paced HTTP client for one API. Every request waits on the
// limiter, so concurrent fan-out callers share one request budget.
type Client struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	MaxRetries int
}

// NewClient builds a Client from cfg, allowing rps requests per second
// (zero disables pacing).
func NewClient(cfg types.HTTPConfig, rps float64) *Client {
	c := &Client{
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
	if rps > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// Get issues a GET request with the configured User-Agent plus header,
// retrying transient failures. The caller closes the response body.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return DoWithRetry(ctx, client, req, c.MaxRetries)
}
