package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the OSRS Wiki real-time prices API.
const DefaultBaseURL = "https://prices.runescape.wiki/api/v1/osrs"

// Endpoint names, relative to the base URL.
const (
	EndpointMapping = "mapping"
	EndpointLatest  = "latest"
	EndpointFiveMin = "5m"
	EndpointDaily   = "24h"
	EndpointVolumes = "volumes"
)

// FetchError wraps any network, HTTP status or decode failure of one endpoint.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wiki /%s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("wiki /%s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the prices API. Raw responses are cached for a short TTL
// and concurrent requests for the same endpoint share one round trip.
type Client struct {
	http  *resty.Client
	cache *responseCache
}

// NewClient creates a client for baseURL identifying itself with userAgent.
// The wiki asks every consumer for a descriptive User-Agent.
func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	h := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	return &Client{
		http:  h,
		cache: newResponseCache(DefaultCacheTTL),
	}
}

// SetRetry overrides the retry count and the base wait between attempts.
func (c *Client) SetRetry(count int, wait time.Duration) {
	c.http.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(wait * 4)
}

// SetCacheTTL changes how long raw responses are reused. Zero disables caching.
func (c *Client) SetCacheTTL(ttl time.Duration) {
	c.cache.setTTL(ttl)
}

// ClearCache drops every cached response and returns how many were removed.
func (c *Client) ClearCache() int {
	return c.cache.Clear()
}

// get returns the raw body of endpoint, served from cache when fresh.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	// The shared fetch is not tied to any one caller; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.cache.group.DoChan(endpoint, func() (any, error) {
		if body, ok := c.cache.Get(endpoint); ok {
			return body, nil
		}
		body, err := c.fetch(fetchCtx, endpoint)
		if err != nil {
			return nil, err
		}
		c.cache.Put(endpoint, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return nil, &FetchError{Endpoint: endpoint, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/" + endpoint)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s", truncate(resp.String(), 200)),
		}
	}
	return resp.Body(), nil
}

// getJSON fetches endpoint and decodes it into dst.
func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
