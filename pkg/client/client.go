// Package client provides the identity-provider HTTP client with
// SSWS authentication, rate budget tracking and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/idp-reports/pkg/pagination"
	"github.com/Sternrassler/idp-reports/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 64 << 10

// HTTPClient is the subset of *http.Client used here, for test injection.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the organization URL, e.g. "https://example.okta.com".
	BaseURL string

	// Token is the API token sent as "Authorization: SSWS <token>".
	Token string

	// UserAgent header value.
	UserAgent string

	// Timeout per HTTP request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// MaxRateLimitAttempts bounds how often a request answered with 429 is
	// sent, counting the first attempt.
	MaxRateLimitAttempts int

	// Tracker holds the rate budget. nil creates an in-memory tracker.
	Tracker *ratelimit.Tracker

	// HTTPClient overrides the default *http.Client.
	HTTPClient HTTPClient
}

// DefaultConfig returns a configuration for the given organization.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:              baseURL,
		Token:                token,
		UserAgent:            "idp-reports/0.1.0",
		Timeout:              30 * time.Second,
		MaxRateLimitAttempts: 3,
	}
}

// Client performs authenticated requests against the organization API.
type Client struct {
	httpClient HTTPClient
	tracker    *ratelimit.Tracker
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("api token is required")
	}

	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "https" && base.Scheme != "http" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url has no host (got %q)", cfg.BaseURL)
	}

	if cfg.MaxRateLimitAttempts < 1 {
		cfg.MaxRateLimitAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "idp-client").Str("org", base.Host).Logger()

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = ratelimit.NewTracker(nil, logger)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		tracker:    tracker,
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized organization URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL builds an absolute URL for an API path such as "/api/v1/users".
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// GetPage fetches one page of a list endpoint. rawURL is either absolute
// (as found in Link headers) or a path relative to the organization.
func (c *Client) GetPage(ctx context.Context, rawURL string) (*pagination.Page, error) {
	target := c.resolve(rawURL)

	resp, err := c.Do(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var items []json.RawMessage
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode page %s: expected JSON array: %w", target, err)
		}
	}
	if items == nil {
		items = []json.RawMessage{}
	}

	return &pagination.Page{
		URL:   target,
		Items: items,
		Links: pagination.ParseLinkHeader(resp.Header.Values("Link")...),
	}, nil
}

// Delete issues a DELETE and discards the response body.
func (c *Client) Delete(ctx context.Context, rawURL string) error {
	resp, err := c.Do(ctx, http.MethodDelete, c.resolve(rawURL))
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Do performs a body-less request with authentication, rate budget
// tracking and 429 handling. A non-2xx response is returned as *APIError;
// on success the caller owns the response body.
func (c *Client) Do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	endpoint := endpointLabel(rawURL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method, endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var resp *http.Response
	err := retryRateLimited(ctx, c.config.MaxRateLimitAttempts, c.logger, func() error {
		r, err := c.attempt(ctx, method, rawURL, endpoint)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// attempt sends one request. The rate budget is consulted before sending
// and updated from the response. A successful response is returned at once
// even when it exhausts the budget; the next call blocks until the reset.
func (c *Client) attempt(ctx context.Context, method, rawURL, endpoint string) (*http.Response, error) {
	if err := c.tracker.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "SSWS "+c.config.Token)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(method, endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{
			Method: method,
			URL:    rawURL,
			Class:  ErrorClassNetwork,
			Err:    err,
		}
	}

	requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if _, err := c.tracker.Observe(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		apiErr := newStatusError(method, rawURL, resp.StatusCode, body)
		errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Str("error_code", apiErr.ErrorCode).
			Msg("Request error")

		if apiErr.Class == ErrorClassRateLimit {
			if err := c.tracker.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return nil, apiErr
	}

	return resp, nil
}

// resolve turns a path into an absolute URL under the organization.
func (c *Client) resolve(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return c.URL(rawURL, nil)
	}
	return c.URL(ref.Path, ref.Query())
}

// collections whose following path segment is a resource id.
var collections = map[string]bool{
	"users":   true,
	"apps":    true,
	"groups":  true,
	"factors": true,
}

// endpointLabel reduces a URL to its path with resource ids replaced by
// "{id}", keeping metric label cardinality bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		if collections[segments[i-1]] && !collections[segments[i]] {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}
