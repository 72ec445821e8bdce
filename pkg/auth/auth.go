package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid and a principal was established.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The request continues
	// unauthenticated; the policy decides whether that is acceptable.
	No

	// Abstain means the request carries no credentials this authenticator
	// understands.
	Abstain
)

// String returns a lowercase label for logs and metrics.
func (d AuthDecision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "abstain"
	}
}

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision  AuthDecision
	Principal *Principal // populated only when Decision == Yes
	Err       error      // populated only when Decision == No
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	// ID is the user identifier carried in the token subject.
	ID uuid.UUID

	// Login is informational; authorization never depends on it.
	Login string

	// Role decides which routes the principal may reach.
	Role api.Role
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Token verification errors. Both produce the same response to the caller
// but are logged and counted separately.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Errors returned by Service. They are *api.APIError values so the
// transport layer can render them directly.
var (
	// ErrBadCredentials is returned for an unknown login and for a wrong
	// password alike.
	ErrBadCredentials = api.NewBadCredentialsError()

	// ErrLoginConflict is returned when sign-up targets an existing login.
	ErrLoginConflict = api.NewConflictError("login", "login already exists")

	// ErrRoleNotAllowed is returned when sign-up requests a role that
	// self-service registration may not grant.
	ErrRoleNotAllowed = api.NewForbiddenError("role cannot be requested at sign-up")

	// ErrPasswordTooLong is returned by PasswordHasher.Hash for input over
	// MaxPasswordBytes.
	ErrPasswordTooLong = api.NewInvalidRequestError("password", "password: must be at most 72 bytes")
)
