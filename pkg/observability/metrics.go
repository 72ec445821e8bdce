// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the StockFlow API.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets for request latencies, from 5ms to
// 5s. bcrypt-bound sign-in requests sit in the upper half.
var APIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Label values for AuthAttemptsTotal.
const (
	OperationSignIn = "signin"
	OperationSignUp = "signup"

	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockflow_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockflow_request_duration_seconds",
			Help:    "Request duration",
			Buckets: APIBuckets,
		},
		[]string{"method"},
	)

	// AuthAttemptsTotal counts sign-in and sign-up attempts by outcome.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockflow_auth_attempts_total",
			Help: "Sign-in and sign-up attempts",
		},
		[]string{"operation", "outcome"},
	)

	// TokenVerificationsTotal counts bearer token checks by result
	// (valid, invalid, expired).
	TokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockflow_token_verifications_total",
			Help: "Bearer token verifications",
		},
		[]string{"result"},
	)

	// AuthorizationDecisionsTotal counts policy decisions (allow,
	// unauthenticated, forbidden).
	AuthorizationDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockflow_authorization_decisions_total",
			Help: "Authorization policy decisions",
		},
		[]string{"decision"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockflow_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttemptsTotal,
		TokenVerificationsTotal,
		AuthorizationDecisionsTotal,
		RateLimitRejectedTotal,
	)
}
