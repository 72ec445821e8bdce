package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/debug"
	"github.com/stockflow/stockflow/pkg/observability"
	"github.com/stockflow/stockflow/pkg/transport"
)

// Gate creates HTTP middleware that authenticates every request and
// stores the outcome in the context. It never writes a response: invalid
// and expired tokens leave the request anonymous and Authorize decides
// what that means for the route.
func Gate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The principal slot is filled at most once per request.
			if PrincipalFromContext(ctx) != nil {
				next.ServeHTTP(w, r)
				return
			}

			result := authn.Authenticate(ctx, r)
			debug.Log("auth", "authenticate", "decision", result.Decision.String(), "path", r.URL.Path)
			switch result.Decision {
			case Yes:
				if result.Principal == nil {
					slog.Error("authenticator returned yes without a principal", "path", r.URL.Path)
					break
				}
				observability.TokenVerificationsTotal.WithLabelValues("valid").Inc()
				slog.Debug("authentication succeeded",
					"subject", result.Principal.ID,
					"role", result.Principal.Role,
					"path", r.URL.Path,
				)
				ctx = SetPrincipal(ctx, result.Principal)

			case No:
				if errors.Is(result.Err, ErrTokenExpired) {
					observability.TokenVerificationsTotal.WithLabelValues("expired").Inc()
					slog.Info("expired token",
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
					)
				} else {
					observability.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
					slog.Warn("invalid token",
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"error", result.Err,
					)
				}
				ctx = SetAuthFailure(ctx, result.Err)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize creates HTTP middleware that evaluates each request against
// policy. Anonymous requests to protected routes get 401 with a
// WWW-Authenticate challenge; principals lacking the required role get 403.
func Authorize(policy *Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			decision := Evaluate(policy, r.Method, r.URL.Path, principal)
			observability.AuthorizationDecisionsTotal.WithLabelValues(decision.String()).Inc()

			switch decision {
			case DenyUnauthenticated:
				challenge := `Bearer realm="stockflow"`
				if AuthFailureFromContext(r.Context()) != nil {
					challenge += `, error="invalid_token"`
				}
				w.Header().Set("WWW-Authenticate", challenge)
				slog.Debug("request denied: no principal",
					"method", r.Method,
					"path", r.URL.Path,
				)
				transport.WriteError(w, r, api.NewUnauthenticatedError())

			case DenyForbidden:
				slog.Warn("request denied: role not permitted",
					"method", r.Method,
					"path", r.URL.Path,
					"subject", principal.ID,
					"role", principal.Role,
				)
				transport.WriteError(w, r, api.NewForbiddenError(""))

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
