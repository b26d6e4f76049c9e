package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	cacheDuration  = 500 * time.Millisecond // Cache prices for 500ms
	requestTimeout = 5 * time.Second
)

// Option configures a REST client.
type Option func(*restClient)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) Option {
	return func(c *restClient) { c.baseURL = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *restClient) { c.httpClient = hc }
}

// WithCacheDuration changes how long a fetched price is reused.
func WithCacheDuration(d time.Duration) Option {
	return func(c *restClient) { c.cacheFor = d }
}

type cachedPrice struct {
	price     float64
	timestamp time.Time
}

// restClient is the JSON-over-HTTP plumbing shared by the REST sources.
type restClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	cacheFor   time.Duration
	cache      map[string]cachedPrice
	mu         sync.RWMutex
}

func newRESTClient(name, baseURL string, opts []Option) *restClient {
	c := &restClient{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		cacheFor:   cacheDuration,
		cache:      make(map[string]cachedPrice),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *restClient) cached(key string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.cache[key]
	if !ok || time.Since(p.timestamp) >= c.cacheFor {
		return 0, false
	}
	return p.price, true
}

func (c *restClient) store(key string, price float64) {
	c.mu.Lock()
	c.cache[key] = cachedPrice{price: price, timestamp: time.Now()}
	c.mu.Unlock()
}

// getJSON fetches url and decodes the body into out.
func (c *restClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", c.name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}
