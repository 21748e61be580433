// Package client executes SPARQL queries and updates against HTTP(S)
// endpoints implementing the SPARQL 1.1 Protocol. It negotiates a result
// format per query form, decodes responses into sparql.Result values, and
// optionally caches decoded-response bodies honoring the endpoint's
// Cache-Control headers.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/cachecontrol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/sparql-go/cache"
	"github.com/roach88/sparql-go/sparql"
)

// HTTP methods accepted by WithMethod.
const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost
)

const defaultMaxResponseBytes = 64 << 20

// Accept values sent per query form. Forms returning bindings prefer the
// JSON results format; graph forms prefer N-Triples for its trivial
// parse, with Turtle and JSON-LD as fallbacks.
const (
	acceptBindings = "application/sparql-results+json, application/sparql-results+xml;q=0.9, " +
		"text/csv;q=0.8, text/tab-separated-values;q=0.8"
	acceptGraph = "application/n-triples, text/turtle;q=0.9, application/ld+json;q=0.8"
)

// Client is a SPARQL protocol client bound to one endpoint. It is safe
// for concurrent use. Client implements sparql.Executor.
type Client struct {
	endpoint       string
	updateEndpoint string
	method         string
	httpClient     *http.Client
	logger         *slog.Logger
	tracer         trace.Tracer
	cache          cache.Cache
	headers        map[string]string
	maxBody        int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracer sets the tracer used to span each exchange.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithCache attaches a response cache. Cached entries are keyed by
// sparql.CacheKey and honored only while fresh.
func WithCache(store cache.Cache) Option {
	return func(c *Client) { c.cache = store }
}

// WithMethod selects GET or POST for query requests. Updates always POST.
func WithMethod(method string) Option {
	return func(c *Client) { c.method = method }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithMaxResponseSize caps the number of response bytes read into memory.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// WithUpdateEndpoint directs update operations to a separate URL.
func WithUpdateEndpoint(endpoint string) Option {
	return func(c *Client) { c.updateEndpoint = endpoint }
}

// New creates a client for the given query endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("client: endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("client: invalid endpoint: %w", err)
	}
	c := &Client{
		endpoint:   endpoint,
		method:     MethodPost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer("sparql-go"),
		headers:    make(map[string]string),
		maxBody:    defaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.updateEndpoint == "" {
		c.updateEndpoint = c.endpoint
	}
	if c.method != MethodGet && c.method != MethodPost {
		return nil, fmt.Errorf("client: method must be %q or %q, got %q", MethodGet, MethodPost, c.method)
	}
	return c, nil
}

// NewFromConfig creates a client from a validated Config.
func NewFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return New(cfg.Endpoint, append(cfg.Options(), opts...)...)
}

// ExecuteQuery renders and executes a built query, decoding the response
// into the result shape its form implies. Satisfies sparql.Executor, so
// queries can also be run through Query.Execute for memoization.
func (c *Client) ExecuteQuery(ctx context.Context, q *sparql.Query) (*sparql.Result, error) {
	text, err := q.Render()
	if err != nil {
		return nil, err
	}
	var graphs []string
	for _, g := range q.Froms() {
		graphs = append(graphs, g.Value)
	}

	ctx, span := c.tracer.Start(ctx, "sparql.query", trace.WithAttributes(
		attribute.String("sparql.form", string(q.Form())),
		attribute.String("sparql.endpoint", c.endpoint),
	))
	defer span.End()

	if c.cache != nil {
		key, err := q.CacheKey()
		if err != nil {
			return nil, err
		}
		if entry, err := c.cache.Get(ctx, key); err == nil {
			c.logger.DebugContext(ctx, "query cache hit", slog.String("key", key))
			span.SetAttributes(attribute.Bool("sparql.cache_hit", true))
			return decodeResult(q.Form(), entry.ContentType, entry.Body)
		} else if !errors.Is(err, cache.ErrMiss) {
			c.logger.WarnContext(ctx, "query cache read failed", slog.String("error", err.Error()))
		}
	}

	contentType, body, cacheable, expires, err := c.roundTrip(ctx, text, q.Form(), graphs)
	if err != nil {
		return nil, err
	}

	result, err := decodeResult(q.Form(), contentType, body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && cacheable {
		key, _ := q.CacheKey()
		entry := &cache.Entry{ContentType: contentType, Body: body, Expires: expires}
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.WarnContext(ctx, "query cache write failed", slog.String("error", err.Error()))
		}
	}
	return result, nil
}

// Update renders and executes an update operation. No response body is
// decoded; a 2xx status means success.
func (c *Client) Update(ctx context.Context, u *sparql.Update) error {
	text, err := u.Render()
	if err != nil {
		return err
	}
	return c.UpdateRaw(ctx, text)
}

// UpdateRaw posts a raw update string to the update endpoint.
func (c *Client) UpdateRaw(ctx context.Context, text string) error {
	ctx, span := c.tracer.Start(ctx, "sparql.update", trace.WithAttributes(
		attribute.String("sparql.endpoint", c.updateEndpoint),
	))
	defer span.End()

	form := url.Values{}
	form.Set("update", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return &sparql.TransportError{Op: "update", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &sparql.TransportError{Op: "update", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &sparql.ProtocolError{
			Op:          "update",
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Message:     strings.TrimSpace(string(body)),
		}
	}
	io.Copy(io.Discard, resp.Body)
	c.logger.DebugContext(ctx, "update applied", slog.Int("status", resp.StatusCode))
	return nil
}

// roundTrip issues one query exchange and returns the response content
// type and body, plus cacheability derived from the response headers.
func (c *Client) roundTrip(ctx context.Context, text string, form sparql.Form, graphs []string) (string, []byte, bool, time.Time, error) {
	req, err := c.newQueryRequest(ctx, text, graphs)
	if err != nil {
		return "", nil, false, time.Time{}, &sparql.TransportError{Op: "query", Err: err}
	}
	req.Header.Set("Accept", acceptFor(form))
	c.applyHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, false, time.Time{}, &sparql.TransportError{Op: "query", Err: err}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", nil, false, time.Time{}, &sparql.ProtocolError{
			Op:          "query",
			Status:      resp.StatusCode,
			ContentType: contentType,
			Message:     strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return "", nil, false, time.Time{}, &sparql.TransportError{Op: "query", Err: err}
	}
	c.logger.DebugContext(ctx, "query executed",
		slog.Int("status", resp.StatusCode),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", time.Since(start)))

	reasons, expires, err := cachecontrol.CachableResponse(req, resp, cachecontrol.Options{PrivateCache: true})
	cacheable := err == nil && len(reasons) == 0 && expires.After(time.Now())
	return contentType, body, cacheable, expires, nil
}

// newQueryRequest builds the GET or POST request carrying the query text
// and any default-graph-uri parameters.
func (c *Client) newQueryRequest(ctx context.Context, text string, graphs []string) (*http.Request, error) {
	params := url.Values{}
	params.Set("query", text)
	for _, g := range graphs {
		params.Add("default-graph-uri", g)
	}

	if c.method == MethodGet {
		u, err := url.Parse(c.endpoint)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

func acceptFor(form sparql.Form) string {
	switch form {
	case sparql.FormConstruct, sparql.FormDescribe:
		return acceptGraph
	default:
		return acceptBindings
	}
}
