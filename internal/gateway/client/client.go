// Package client is the typed gateway client. Every call goes through the
// request builder, the transport and the error mapper, so callers only ever see
// a decoded value or a *apierror.Error.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/gateway/request"
	"teamhub/internal/platform/metrics"
	"teamhub/internal/session"
	"teamhub/pkg/requestcontext"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 10 << 20
)

// Client calls the gateway on behalf of the current session.
type Client struct {
	baseURL  string
	http     *http.Client
	builder  *request.Builder
	sessions session.Reader
	metrics  *metrics.Metrics
	logger   *slog.Logger
	maxResp  int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds every call. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithMetrics counts normalized failures by kind.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithMaxResponseBytes caps the response body read per call. Zero keeps the
// default.
func WithMaxResponseBytes(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxResp = n
		}
	}
}

// New creates a client for baseURL, e.g. http://localhost:3000/api. sessions
// supplies the credential for each call and the identity for role checks.
func New(baseURL string, sessions session.Reader, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		builder:  request.NewBuilder(sessions),
		sessions: sessions,
		logger:   slog.Default(),
		maxResp:  defaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do builds, sends and normalizes one call.
func Do[T any](ctx context.Context, c *Client, path string, opts request.Options) (T, error) {
	out, err := c.send(ctx, path, opts)
	if err != nil {
		var zero T
		return zero, c.fail(ctx, path, err)
	}
	v, err := apierror.Normalize[T](out)
	if err != nil {
		return v, c.fail(ctx, path, err)
	}
	return v, nil
}

// Get issues a GET with query parameters. Nil values are left out.
func Get[T any](ctx context.Context, c *Client, path string, query request.Params) (T, error) {
	return Do[T](ctx, c, path, request.Options{Method: http.MethodGet, Query: query})
}

func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return Do[T](ctx, c, path, request.Options{Method: http.MethodPost, Body: body})
}

func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return Do[T](ctx, c, path, request.Options{Method: http.MethodPut, Body: body})
}

func Patch[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return Do[T](ctx, c, path, request.Options{Method: http.MethodPatch, Body: body})
}

func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return Do[T](ctx, c, path, request.Options{Method: http.MethodDelete})
}

// send performs the round trip. A non-nil error is a build failure; transport
// failures are reported inside the Outcome.
func (c *Client) send(ctx context.Context, path string, opts request.Options) (apierror.Outcome, error) {
	out, err := c.builder.Build(ctx, path, opts)
	if err != nil {
		return apierror.Outcome{}, err
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		out.Header.Set("X-Request-ID", requestID)
	}

	req, err := out.HTTPRequest(ctx, c.baseURL)
	if err != nil {
		return apierror.Outcome{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apierror.Outcome{Err: err}, nil
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "failed to close response body", "error", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResp+1))
	if err != nil {
		return apierror.Outcome{Err: err}, nil
	}
	if int64(len(body)) > c.maxResp {
		e := apierror.New(apierror.KindUnknown, apierror.CodeResponseTooLarge,
			fmt.Sprintf("Response body exceeds %d bytes", c.maxResp))
		e.HTTPStatus = resp.StatusCode
		return apierror.Outcome{}, e
	}
	return apierror.Outcome{Status: resp.StatusCode, Body: body}, nil
}

func (c *Client) fail(ctx context.Context, path string, err error) error {
	e := apierror.From(err)
	c.metrics.IncrementClientError(string(e.Kind))
	c.logger.DebugContext(ctx, "gateway call failed",
		"path", path,
		"kind", e.Kind,
		"code", e.Code,
		"status", e.HTTPStatus,
		"request_id", requestcontext.RequestID(ctx),
	)
	return e
}

func pageParams(opts ListOptions) request.Params {
	params := request.Params{"pageSize": clampPageSize(opts.PageSize)}
	if opts.Page > 0 {
		params["page"] = opts.Page
	}
	return params
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// optional maps the zero value to nil so the key is omitted from the query.
func optional[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}
