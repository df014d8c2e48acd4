// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package split

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultBaseURL is the Split Admin API root.
	DefaultBaseURL = "https://api.split.io/internal/api/v2"

	defaultPageSize = 50
	defaultRetryMax = 4
)

// Client talks to the Split Admin API.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *retryablehttp.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client somewhere other than DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying *http.Client used by the retrying
// transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTPClient = hc }
}

// WithRetryMax sets how many times a 429 or 5xx response is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithPageSize sets the limit used on paginated list calls.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient builds a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.RetryMax = defaultRetryMax
	rc.Logger = leveledLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		pageSize: defaultPageSize,
		http:     rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIKeyFromEnv returns the admin API key from SPLIT_ADMIN_API_KEY, falling
// back to ADMIN_API_KEY.
func APIKeyFromEnv() string {
	if k := os.Getenv("SPLIT_ADMIN_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("ADMIN_API_KEY")
}

// BaseURL returns the API root the client is using.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one request. in, when non-nil, is sent as JSON. out, when
// non-nil, receives the decoded JSON response.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	params any,
	in any,
	out any,
) error {
	u := c.baseURL + path
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("failed to encode query: %w", err)
		}
		if q := v.Encode(); q != "" {
			u += "?" + q
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debugf("%s %s", method, u)

	// With the passthrough error handler a final 429/5xx still comes back as
	// a response, so only a missing response is a transport failure.
	resp, err := c.http.Do(req)
	if resp == nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var doc bytes.Buffer
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        u,
			Body:       doc.String(),
		}
	}

	if out == nil || doc.Len() == 0 {
		return nil
	}
	if err := json.Unmarshal(doc.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

// seg escapes one path segment.
func seg(s string) string {
	return url.PathEscape(s)
}

// leveledLogger routes retryablehttp's logging through apex/log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Error(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Warn(msg) }

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
