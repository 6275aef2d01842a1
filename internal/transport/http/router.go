package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"teamhub/internal/gateway/proxy"
	"teamhub/internal/platform/middleware"
	"teamhub/pkg/platform/httputil"
	"teamhub/pkg/platform/middleware/metadata"
	"teamhub/pkg/platform/middleware/requesttime"
)

// RouterOption configures the router.
type RouterOption func(*routerConfig)

type routerConfig struct {
	allowedOrigins []string
	metrics        http.Handler
}

// WithAllowedOrigins enables CORS for the given browser origins.
func WithAllowedOrigins(origins []string) RouterOption {
	return func(c *routerConfig) {
		c.allowedOrigins = origins
	}
}

// WithMetricsHandler replaces the default Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(c *routerConfig) {
		if h != nil {
			c.metrics = h
		}
	}
}

// NewRouter wires the public surface: the proxy under /api, plus health and
// metrics endpoints. Every route shares the same middleware chain.
func NewRouter(p *proxy.Proxy, logger *slog.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{metrics: promhttp.Handler()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(logger))
	if len(cfg.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", cfg.metrics)
	r.Route("/api", p.Register)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
