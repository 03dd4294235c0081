// Package client provides the paginated prix.nc HTTP client with retry,
// connection reuse, page caching, and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prixnc/extractor/pkg/cache"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prixnc_requests_total",
		Help: "Total upstream requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prixnc_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prixnc_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// defaultEndpoint is the product listing path on the prix.nc API.
const defaultEndpoint = "/api/v1/produits/"

// Page is one batch of raw product items plus pagination metadata.
// Items preserve upstream order.
type Page struct {
	Number        int
	Size          int
	Items         []map[string]any
	TotalPages    int
	TotalElements int64
	HasNext       bool
}

// halLink is one entry of the upstream _links object.
type halLink struct {
	Href string `json:"href"`
}

// halPage mirrors the HAL/JSON payload served by the prix.nc API.
type halPage struct {
	Embedded struct {
		Produits []map[string]any `json:"produits"`
	} `json:"_embedded"`
	Links map[string]halLink `json:"_links"`
	Page  *struct {
		Size          int   `json:"size"`
		TotalElements int64 `json:"totalElements"`
		TotalPages    int   `json:"totalPages"`
		Number        int   `json:"number"`
	} `json:"page"`
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream API, e.g. "https://prix.nc".
	BaseURL string

	// APIKey is sent as X-API-Key when non-empty.
	APIKey string

	// UserAgent header sent on every request.
	UserAgent string

	// Timeout per attempt.
	Timeout time.Duration

	// Retry policy for transient errors.
	Retry RetryConfig

	// Cache is an optional Redis page cache. Nil disables caching.
	Cache *cache.Manager

	// CacheTTL is how long cached pages stay valid.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "prixnc-extractor/0.1.0",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
		CacheTTL:  1 * time.Hour,
	}
}

// Client fetches product pages from the prix.nc API. All requests of a run
// share one pooled transport; Close releases its idle connections.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	config     Config
	logger     zerolog.Logger
	sleep      SleepFunc
}

// New creates a new prix.nc client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %v)", cfg.Timeout)
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.Retry.MaxRetries)
	}

	logger := log.With().Str("component", "prixnc-client").Logger()

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport: transport,
		config:    cfg,
		logger:    logger,
		sleep:     realSleep,
	}, nil
}

// FetchPage fetches a single page of products. Transient errors (network,
// 5xx, 429) are retried per the retry config; other 4xx responses and
// malformed bodies fail immediately.
func (c *Client) FetchPage(ctx context.Context, pageNum, pageSize int) (*Page, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(defaultEndpoint).Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := cache.Key{Endpoint: defaultEndpoint, Page: pageNum, Size: pageSize}

	if c.config.Cache != nil {
		entry, err := c.config.Cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Int("page", pageNum).Msg("Page cache get error")
		}
		if entry != nil {
			c.logger.Debug().Int("page", pageNum).Msg("Page served from cache")
			requestsTotal.WithLabelValues("cache_hit").Inc()
			return c.decodePage(pageNum, pageSize, entry.Body)
		}
	}

	reqURL, err := c.pageURL(pageNum, pageSize)
	if err != nil {
		return nil, err
	}

	var body []byte

	retryErr := retryWithBackoff(ctx, c.config.Retry, c.sleep, c.logger, classifyErr, func() error {
		var reqErr error
		body, reqErr = c.doRequest(ctx, reqURL)
		return reqErr
	})
	if retryErr != nil {
		return nil, retryErr
	}

	page, err := c.decodePage(pageNum, pageSize, body)
	if err != nil {
		return nil, err
	}

	if c.config.Cache != nil {
		entry := &cache.Entry{Body: body, FetchedAt: time.Now()}
		if err := c.config.Cache.Set(ctx, cacheKey, entry, c.config.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Int("page", pageNum).Msg("Failed to cache page")
		}
	}

	c.logger.Debug().
		Int("page", pageNum).
		Int("items", len(page.Items)).
		Bool("has_next", page.HasNext).
		Msg("Page fetched")

	return page, nil
}

// doRequest executes one GET attempt and returns the response body.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
	}
	return body, nil
}

// decodePage parses a HAL payload into a Page.
func (c *Client) decodePage(pageNum, pageSize int, body []byte) (*Page, error) {
	var raw halPage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrMalformedResponse, pageNum, err)
	}

	page := &Page{
		Number: pageNum,
		Size:   pageSize,
		Items:  raw.Embedded.Produits,
	}
	if raw.Page != nil {
		page.TotalPages = raw.Page.TotalPages
		page.TotalElements = raw.Page.TotalElements
	}
	_, page.HasNext = raw.Links["next"]
	return page, nil
}

// pageURL builds the request URL for a page.
func (c *Client) pageURL(pageNum, pageSize int) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	u = u.JoinPath(defaultEndpoint)
	q := u.Query()
	q.Set("page", strconv.Itoa(pageNum))
	q.Set("size", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Close releases pooled connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSleepFunc replaces the retry sleep (for testing).
func (c *Client) SetSleepFunc(sleep SleepFunc) {
	c.sleep = sleep
}
