// Package proxy is the server-side forwarding hop. It relays a caller's request
// to the upstream API with the caller's own Authorization header and returns the
// upstream status and body unchanged. The only response it manufactures is a
// fixed 502 when the forward itself fails.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"teamhub/internal/gateway/request"
	"teamhub/internal/platform/metrics"
	"teamhub/pkg/platform/httputil"
	"teamhub/pkg/requestcontext"
)

const (
	defaultMaxBodyBytes     = 1 << 20
	defaultMaxResponseBytes = 10 << 20
	defaultTimeout          = 30 * time.Second

	badGatewayCode    = "BAD_GATEWAY"
	badGatewayMessage = "Backend unavailable"
)

func closeBody(body io.Closer, logger *slog.Logger) {
	if err := body.Close(); err != nil {
		logger.Debug("failed to close body", "error", err)
	}
}

// Proxy forwards requests to a single upstream base URL.
type Proxy struct {
	upstream   string
	client     *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxBody    int64
	maxResp    int64
	rules      []Rule
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithHTTPClient replaces the outbound client. Its Timeout bounds each forward.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout sets the per-forward timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(p *Proxy) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// WithMetrics records forwards and synthetic 502s.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Proxy) { p.metrics = m }
}

// WithMaxBodyBytes caps the request body read from the caller.
func WithMaxBodyBytes(n int64) Option {
	return func(p *Proxy) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// WithMaxResponseBytes caps the upstream body relayed to the caller. A larger
// body is answered with the fixed 502.
func WithMaxResponseBytes(n int64) Option {
	return func(p *Proxy) {
		if n > 0 {
			p.maxResp = n
		}
	}
}

// New creates a proxy for upstreamBase, e.g. http://localhost:8080/api/v1.
func New(upstreamBase string, logger *slog.Logger, opts ...Option) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Proxy{
		upstream: strings.TrimSuffix(upstreamBase, "/"),
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:     logger,
		maxBody:    defaultMaxBodyBytes,
		maxResp:    defaultMaxResponseBytes,
		rules:      DefaultRules(),
		tracer:     otel.Tracer("teamhub/gateway/proxy"),
		propagator: otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register mounts one route per rule on r. Mount it under /api.
func (p *Proxy) Register(r chi.Router) {
	for _, rule := range p.rules {
		h := p.Handler(rule)
		r.Handle("/"+rule.Segment, h)
		if rule.Subpaths {
			r.Handle("/"+rule.Segment+"/*", h)
		}
	}
}

// Handler forwards requests for a single rule. The sub-path, if any, is taken
// from the chi wildcard.
func (p *Proxy) Handler(rule Rule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.forward(w, r, rule)
	})
}

func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, rule Rule) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !rule.Allows(r.Method) {
		w.Header().Set("Allow", rule.allowHeader())
		httputil.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s is not allowed on %s", r.Method, rule.Segment))
		return
	}

	subpath, ok := wildcard(r)
	var target string
	if ok {
		target, ok = p.targetURL(rule, subpath, r.URL.Query())
	}
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Route not found")
		return
	}

	var body []byte
	if r.Method != http.MethodGet && r.Body != nil {
		defer closeBody(r.Body, p.logger)
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, p.maxBody+1))
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to read request body")
			return
		}
		if int64(len(body)) > p.maxBody {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
	}

	ctx = p.propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	ctx, span := p.tracer.Start(ctx, "proxy."+rule.Segment, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("teamhub.segment", rule.Segment),
		attribute.String("request_id", requestID),
	)

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}
	upstreamReq, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		p.badGateway(w, r, rule, span, err)
		return
	}
	p.setUpstreamHeaders(ctx, upstreamReq, r)

	start := time.Now()
	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		if errors.Is(r.Context().Err(), context.Canceled) {
			span.SetStatus(codes.Error, "caller canceled")
			p.logger.InfoContext(ctx, "caller canceled forwarded request",
				"segment", rule.Segment,
				"request_id", requestID,
			)
			return
		}
		p.badGateway(w, r, rule, span, err)
		return
	}
	defer closeBody(resp.Body, p.logger)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, p.maxResp+1))
	if err != nil {
		if errors.Is(r.Context().Err(), context.Canceled) {
			return
		}
		p.badGateway(w, r, rule, span, err)
		return
	}
	if int64(len(respBody)) > p.maxResp {
		p.badGateway(w, r, rule, span, fmt.Errorf("upstream body exceeds %d bytes", p.maxResp))
		return
	}

	elapsed := time.Since(start)
	p.metrics.ObserveForward(rule.Segment, r.Method, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(respBody); err != nil {
		p.logger.WarnContext(ctx, "failed to relay upstream body",
			"error", err,
			"request_id", requestID,
		)
	}

	p.logger.DebugContext(ctx, "forwarded request",
		"segment", rule.Segment,
		"method", r.Method,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
	)
}

// wildcard returns the decoded chi sub-path. chi routes on RawPath when the
// request carries one, so encoded separators such as %2F arrive still escaped.
func wildcard(r *http.Request) (string, bool) {
	sub := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return sub, true
	}
	decoded, err := url.PathUnescape(sub)
	return decoded, err == nil
}

// targetURL joins the upstream base, segment and escaped sub-path, then copies
// every query key that carries exactly one value. Keys repeated in the query
// string arrive as lists and are dropped. ok is false when the sub-path holds
// an empty, "." or ".." segment.
func (p *Proxy) targetURL(rule Rule, subpath string, query url.Values) (string, bool) {
	target := p.upstream + "/" + rule.Segment
	sub, ok := request.JoinSegments(subpath)
	if !ok {
		return "", false
	}
	if sub != "" {
		target += "/" + sub
	}

	out := url.Values{}
	for key, values := range query {
		if len(values) == 1 {
			out.Set(key, values[0])
		}
	}
	if encoded := out.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target, true
}

func (p *Proxy) setUpstreamHeaders(ctx context.Context, upstreamReq, incoming *http.Request) {
	upstreamReq.Header.Set("Content-Type", "application/json")
	upstreamReq.Header.Set("Accept", "application/json")
	if auth := incoming.Header.Get("Authorization"); auth != "" {
		upstreamReq.Header.Set("Authorization", auth)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		upstreamReq.Header.Set("X-Request-ID", requestID)
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		upstreamReq.Header.Set("X-Forwarded-For", ip)
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(upstreamReq.Header))
}

func (p *Proxy) badGateway(w http.ResponseWriter, r *http.Request, rule Rule, span trace.Span, err error) {
	ctx := r.Context()
	span.RecordError(err)
	span.SetStatus(codes.Error, "forward failed")
	p.metrics.IncrementBadGateway(rule.Segment)
	p.logger.WarnContext(ctx, "forward failed",
		"error", err,
		"segment", rule.Segment,
		"method", r.Method,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, http.StatusBadGateway, badGatewayCode, badGatewayMessage)
}
