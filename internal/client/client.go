package client

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

var (
	// ErrTransport marks failures to send a request or read its response.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks response bodies that are not valid JSON.
	ErrDecode = errors.New("decode response")
)

// CorrelationHeader carries the per-request correlation ID to the platform service.
const CorrelationHeader = "X-Correlation-ID"

// Config configures a Client. BaseURL is the API prefix every endpoint is appended to,
// e.g. "http://127.0.0.1:3000/api/". Headers are sent on every request on top of
// Content-Type; per-call headers win over both.
type Config struct {
	BaseURL string
	Timeout time.Duration // 0 leaves the transport default (no timeout)
	Headers map[string]string
}

// Client issues JSON requests against the platform API. It keeps no state between
// calls other than its configuration; every read goes to the service.
type Client struct {
	baseURL *url.URL
	headers map[string]string
	http    *http.Client
	logger  *zap.Logger
}

// New validates cfg and returns a Client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return nil, fmt.Errorf("invalid base URL %q: query and fragment are not allowed", cfg.BaseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		baseURL: u,
		headers: headers,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// BaseURL returns the normalized API prefix.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Response is a fully read and decoded platform API response.
type Response struct {
	Endpoint   string
	StatusCode int
	Header     http.Header
	Raw        json.RawMessage
	Value      any // decoded JSON: map[string]any, []any, string, float64, bool or nil
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

type requestOptions struct {
	method  string
	body    any
	headers map[string]string
}

// RequestOption customizes a single Do call.
type RequestOption func(*requestOptions)

// WithMethod overrides the default POST method.
func WithMethod(method string) RequestOption {
	return func(o *requestOptions) {
		o.method = method
	}
}

// WithBody sets the value serialized as the JSON payload.
func WithBody(body any) RequestOption {
	return func(o *requestOptions) {
		o.body = body
	}
}

// WithHeader adds one header for this call.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithHeaders adds several headers for this call.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *requestOptions) {
		for k, v := range headers {
			WithHeader(k, v)(o)
		}
	}
}

type correlationKey struct{}

// WithCorrelationID returns a context whose requests carry id in the correlation header.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Do sends one JSON request to endpoint and decodes the JSON response.
//
// The body is always serialized, so a call without WithBody sends the JSON text "null".
// The HTTP status is not inspected: an error status with a JSON body is returned as data
// and callers classify it (see Classify). Transport failures wrap ErrTransport and
// non-JSON bodies wrap ErrDecode. There are no retries.
func (c *Client) Do(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	o := requestOptions{method: http.MethodPost}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := json.Marshal(o.body)
	if err != nil {
		return nil, fmt.Errorf("encode request body for %s: %w", endpoint, err)
	}

	req, err := c.buildRequest(ctx, o, endpoint, payload)
	if err != nil {
		return nil, err
	}
	corrID := req.Header.Get(CorrelationHeader)
	label := endpointLabel(endpoint)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		duration := time.Since(start)
		observability.PlatformAPIDuration.WithLabelValues(label, "error").Observe(duration.Seconds())
		c.logger.Debug("platform api request failed",
			zap.String("method", o.method),
			zap.String("endpoint", endpoint),
			zap.String("correlation_id", corrID),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, o.method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	observability.PlatformAPIDuration.WithLabelValues(label, statusLabel(resp.StatusCode)).Observe(duration.Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", ErrTransport, endpoint, err)
	}

	c.logger.Debug("platform api request",
		zap.String("method", o.method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.String("correlation_id", corrID),
		zap.Duration("duration", duration))

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: %s (status %d): %w", ErrDecode, endpoint, resp.StatusCode, err)
	}

	return &Response{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Raw:        raw,
		Value:      value,
	}, nil
}

// Call performs Do and classifies the outcome.
func (c *Client) Call(ctx context.Context, endpoint string, opts ...RequestOption) Result {
	resp, err := c.Do(ctx, endpoint, opts...)
	result := Classify(endpoint, resp, err)

	observability.PlatformAPICallsTotal.WithLabelValues(endpointLabel(endpoint), result.Outcome.String()).Inc()
	if cause := result.Err(); cause != nil {
		observability.PlatformAPIErrorsTotal.WithLabelValues(string(CategorizeError(cause))).Inc()
	}
	return result
}

func (c *Client) buildRequest(ctx context.Context, o requestOptions, endpoint string, payload []byte) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	target := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, o.method, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get(CorrelationHeader) == "" {
		req.Header.Set(CorrelationHeader, correlationID(ctx))
	}
	return req, nil
}

// endpointLabel strips the query so metric cardinality stays bounded.
func endpointLabel(endpoint string) string {
	endpoint = strings.TrimLeft(endpoint, "/")
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func statusLabel(statusCode int) string {
	return fmt.Sprintf("%dxx", statusCode/100)
}
