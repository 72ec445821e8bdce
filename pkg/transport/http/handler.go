package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/auth"
	"github.com/stockflow/stockflow/pkg/observability"
	"github.com/stockflow/stockflow/pkg/transport"
)

// HandlerConfig describes the full request pipeline.
type HandlerConfig struct {
	Services Services

	// Authenticator is required.
	Authenticator auth.Authenticator

	// Policy defaults to auth.DefaultPolicy(), plus a public rule for a
	// non-default MetricsPath.
	Policy *auth.Policy

	MaxBodySize int64

	// AuthRateLimit is the number of requests per minute a single client
	// IP may send to /auth/*. Zero disables the limit.
	AuthRateLimit int

	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string

	Logger *slog.Logger
}

// NewHandler builds the complete handler chain, outermost first: request
// ID, panic recovery, access log, metrics, security headers,
// authentication gate, authorization, then routing.
func NewHandler(cfg HandlerConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = defaultPolicy(cfg.MetricsPath, cfg.Logger)
	}

	adapter := NewAdapter(cfg.Services, Config{MaxBodySize: cfg.MaxBodySize})
	if cfg.MetricsPath != "" {
		adapter.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	var routes http.Handler = adapter.Handler()
	if cfg.AuthRateLimit > 0 {
		routes = limitAuthRoutes(routes, cfg.AuthRateLimit)
	}

	headers := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	return transport.Chain(
		transport.RequestID(),
		transport.Recovery(),
		AccessLog(cfg.Logger),
		observability.MetricsMiddleware,
		headers.Handler,
		auth.Gate(cfg.Authenticator),
		auth.Authorize(cfg.Policy),
	)(routes)
}

// defaultPolicy returns auth.DefaultPolicy, extended with a public rule
// when metrics are served somewhere other than /metrics.
func defaultPolicy(metricsPath string, logger *slog.Logger) *auth.Policy {
	base := auth.DefaultPolicy()
	if metricsPath == "" || metricsPath == "/metrics" {
		return base
	}
	rules := append(base.Rules(), auth.Rule{Method: http.MethodGet, Pattern: metricsPath, Requirement: auth.Public()})
	p, err := auth.NewPolicy(rules...)
	if err != nil {
		logger.Warn("metrics path not added to policy", "path", metricsPath, "error", err)
		return base
	}
	return p
}

// limitAuthRoutes throttles the credential endpoints per client IP.
func limitAuthRoutes(next http.Handler, perMinute int) http.Handler {
	limited := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			route := "other"
			if r.URL.Path == "/auth/signin" || r.URL.Path == "/auth/signup" {
				route = r.URL.Path
			}
			observability.RateLimitRejectedTotal.WithLabelValues(route).Inc()
			slog.Warn("rate limit exceeded",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			transport.WriteError(w, r, api.NewTooManyRequestsError("too many authentication attempts, retry later"))
		}),
	)(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
