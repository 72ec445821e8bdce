package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/observability"
	"github.com/stockflow/stockflow/pkg/storage"
)

// CredentialStore is the subset of storage the sign-in and sign-up flows need.
type CredentialStore interface {
	FindByLogin(ctx context.Context, login string) (*api.User, error)
	Save(ctx context.Context, u *api.User) (*api.User, error)
}

// TokenIssuer mints bearer tokens for authenticated principals.
type TokenIssuer interface {
	Issue(p *Principal) (token string, expiresAt time.Time, err error)
}

// Service implements sign-in and sign-up.
type Service struct {
	store       CredentialStore
	hasher      *PasswordHasher
	issuer      TokenIssuer
	signUpRoles map[api.Role]bool
	logger      *slog.Logger

	// dummyHash is compared against on unknown logins so that the response
	// time does not reveal whether the login exists.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithSignUpRoles restricts the roles self-service sign-up may request.
// By default every role is allowed.
func WithSignUpRoles(roles ...api.Role) Option {
	return func(s *Service) {
		s.signUpRoles = make(map[api.Role]bool, len(roles))
		for _, r := range roles {
			s.signUpRoles[r] = true
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service.
func NewService(store CredentialStore, hasher *PasswordHasher, issuer TokenIssuer, opts ...Option) (*Service, error) {
	s := &Service{
		store:  store,
		hasher: hasher,
		issuer: issuer,
		signUpRoles: map[api.Role]bool{
			api.RoleAdmin:  true,
			api.RoleCommon: true,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash("stockflow-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("preparing dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// SignIn verifies the credentials and issues a token. An unknown login and
// a wrong password both yield ErrBadCredentials.
func (s *Service) SignIn(ctx context.Context, req *api.SignInRequest) (*api.SignInResponse, error) {
	if apiErr := api.Validate(req); apiErr != nil {
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignIn, observability.OutcomeInvalid).Inc()
		return nil, apiErr
	}

	u, err := s.store.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignIn, observability.OutcomeFailure).Inc()
			s.logger.Info("sign-in failed", "reason", "bad credentials")
			return nil, ErrBadCredentials
		}
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignIn, observability.OutcomeError).Inc()
		return nil, fmt.Errorf("looking up login: %w", err)
	}

	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignIn, observability.OutcomeFailure).Inc()
		s.logger.Info("sign-in failed", "reason", "bad credentials")
		return nil, ErrBadCredentials
	}

	token, expiresAt, err := s.issuer.Issue(&Principal{ID: u.ID, Login: u.Login, Role: u.Role})
	if err != nil {
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignIn, observability.OutcomeError).Inc()
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignIn, observability.OutcomeSuccess).Inc()
	s.logger.Info("user signed in", "user_id", u.ID, "role", u.Role, "expires_at", expiresAt)
	return &api.SignInResponse{Token: token}, nil
}

// SignUp registers a new credential record.
func (s *Service) SignUp(ctx context.Context, req *api.SignUpRequest) (*api.SignUpResponse, error) {
	if apiErr := api.Validate(req); apiErr != nil {
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignUp, observability.OutcomeInvalid).Inc()
		return nil, apiErr
	}
	if !s.signUpRoles[req.Role] {
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignUp, observability.OutcomeFailure).Inc()
		return nil, ErrRoleNotAllowed
	}

	u, err := s.create(ctx, req.Login, req.Password, req.Role)
	if err != nil {
		outcome := observability.OutcomeError
		switch {
		case errors.Is(err, ErrLoginConflict):
			outcome = observability.OutcomeConflict
		case errors.Is(err, ErrPasswordTooLong):
			outcome = observability.OutcomeInvalid
		}
		observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignUp, outcome).Inc()
		return nil, err
	}

	observability.AuthAttemptsTotal.WithLabelValues(observability.OperationSignUp, observability.OutcomeSuccess).Inc()
	s.logger.Info("user signed up", "user_id", u.ID, "role", u.Role)
	resp := api.NewSignUpResponse(u)
	return &resp, nil
}

// EnsureUser creates login with the given role unless it already exists.
// It bypasses the sign-up role restriction and is meant for seeding the
// bootstrap administrator.
func (s *Service) EnsureUser(ctx context.Context, login, password string, role api.Role) (bool, error) {
	u, err := s.create(ctx, login, password, role)
	if err != nil {
		if errors.Is(err, ErrLoginConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("user seeded", "user_id", u.ID, "login", u.Login, "role", u.Role)
	return true, nil
}

func (s *Service) create(ctx context.Context, login, password string, role api.Role) (*api.User, error) {
	if _, err := s.store.FindByLogin(ctx, login); err == nil {
		return nil, ErrLoginConflict
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("looking up login: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, &api.User{
		ID:           api.NewUserID(),
		Login:        login,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrLoginConflict
		}
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return saved, nil
}
