// Package indexclient is a blocking client for the LingSearch HTTP API.
// Calls are safe for concurrent use; run them in goroutines for
// asynchronous work.
package indexclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/circuitbreaker"
	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/code-100-precent/LingSearch/pkg/utils"
	"go.uber.org/zap"
)

const (
	EnvEndpoint       = "LINGSEARCH_ENDPOINT"
	EnvAPIKey         = "LINGSEARCH_API_KEY"
	EnvSchemaMaxDepth = "SCHEMA_MAX_DEPTH"

	apiKeyHeader = "api-key"
	defaultPath  = "/api"
)

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	retry      *circuitbreaker.RetryConfig
	breaker    *circuitbreaker.CircuitBreaker
	builder    *schema.FieldBuilder
	registry   *schema.Registry
	logger     *zap.Logger
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every HTTP attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry replaces the retry policy; nil disables retries
func WithRetry(cfg *circuitbreaker.RetryConfig) Option {
	return func(c *Client) {
		if cfg == nil {
			cfg = circuitbreaker.DefaultRetryConfig().WithMaxAttempts(1)
		}
		c.retry = cfg
	}
}

func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFieldBuilder sets the builder used by CreateIndexForType
func WithFieldBuilder(b *schema.FieldBuilder) Option {
	return func(c *Client) {
		if b != nil {
			c.builder = b
		}
	}
}

// NewClient creates a client for endpoint. A bare host gets the /api prefix.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("indexclient: invalid endpoint %q", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultPath
	}
	c := &Client{
		endpoint:   strings.TrimRight(u.String(), "/"),
		httpClient: http.DefaultClient,
		retry:      circuitbreaker.DefaultRetryConfig(),
		logger:     zap.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if c.builder == nil {
		c.builder = schema.NewFieldBuilder(schema.WithLogger(c.logger))
	}
	c.registry = schema.NewRegistry(c.builder, 0)
	c.logger = c.logger.Named("indexclient")
	return c, nil
}

// NewClientFromEnv reads LINGSEARCH_ENDPOINT, LINGSEARCH_API_KEY and
// SCHEMA_MAX_DEPTH. Explicit options win over the environment.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	endpoint := utils.GetEnv(EnvEndpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("indexclient: %s is not set", EnvEndpoint)
	}
	var envOpts []Option
	if key := utils.GetEnv(EnvAPIKey); key != "" {
		envOpts = append(envOpts, WithAPIKey(key))
	}
	if depth := utils.GetIntEnv(EnvSchemaMaxDepth); depth > 0 {
		envOpts = append(envOpts, WithFieldBuilder(schema.NewFieldBuilder(
			schema.WithMaxDepth(int(depth)),
			schema.WithLogger(zap.L()),
		)))
	}
	return NewClient(endpoint, append(envOpts, opts...)...)
}

func (c *Client) Endpoint() string { return c.endpoint }

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type reply struct {
	status int
	etag   string
	data   json.RawMessage
}

type call struct {
	method  string
	path    string
	query   url.Values
	body    any
	ifMatch string
}

// send runs one API call with retries and decodes the envelope
func (c *Client) send(ctx context.Context, req call) (reply, error) {
	var payload []byte
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return reply{}, err
		}
		payload = raw
	}
	target := c.endpoint + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var out reply
	attempt := 0
	err := circuitbreaker.RetryWithCircuitBreaker(ctx, c.breaker, func(ctx context.Context) error {
		attempt++
		r, err := c.roundTrip(ctx, req, target, payload)
		if err != nil {
			c.logger.Debug("request attempt failed",
				zap.String("method", req.method),
				zap.String("path", req.path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		out = r
		return nil
	}, c.retry)
	return out, err
}

func (c *Client) roundTrip(ctx context.Context, req call, target string, payload []byte) (reply, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return reply{}, circuitbreaker.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}
	if req.ifMatch != "" {
		httpReq.Header.Set("If-Match", req.ifMatch)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return reply{}, circuitbreaker.Permanent(ctx.Err())
		}
		return reply{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{}, err
	}
	var env envelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := &ResponseError{
			StatusCode: resp.StatusCode,
			Message:    env.Msg,
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
		if rerr.Message == "" {
			rerr.Message = strings.TrimSpace(string(raw))
		}
		if rerr.Retryable() {
			return reply{}, rerr
		}
		return reply{}, circuitbreaker.Permanent(rerr)
	}
	return reply{status: resp.StatusCode, etag: resp.Header.Get("ETag"), data: env.Data}, nil
}

func decode[T any](r reply) (T, error) {
	var v T
	if len(r.data) == 0 || string(r.data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(r.data, &v); err != nil {
		return v, fmt.Errorf("indexclient: decode response: %w", err)
	}
	return v, nil
}

// breakerFailure decides which errors count against a circuit breaker.
// Client errors such as 404 or 412 say nothing about service health.
func breakerFailure(err error) bool {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		return rerr.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a breaker that only trips on transport
// failures, 429 and 5xx responses.
func NewCircuitBreaker(name string) *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.DefaultConfig(name)
	cfg.IsFailure = breakerFailure
	return circuitbreaker.New(cfg)
}
