// Package jwt issues and verifies the HS256 bearer tokens StockFlow hands
// out at sign-in, and provides the auth.Authenticator that reads them from
// the Authorization header.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/auth"
)

// MinSecretLength is the shortest HMAC secret accepted, matching the
// SHA-256 output size.
const MinSecretLength = 32

// DefaultTTL is the token lifetime when KeyConfig.TTL is zero.
const DefaultTTL = 2 * time.Hour

// KeyConfig holds the token signing configuration.
type KeyConfig struct {
	// Secret is the HMAC key. It is copied at construction.
	Secret []byte

	// Issuer is written to and required in the iss claim. If empty, the
	// issuer is neither set nor validated.
	Issuer string

	// TTL is the token lifetime. Default: 2 hours.
	TTL time.Duration

	// Now is the clock. If nil, time.Now is used (useful for testing).
	Now func() time.Time
}

// Claims is the token payload.
type Claims struct {
	Role  string `json:"role"`
	Login string `json:"login,omitempty"`
	jwtlib.RegisteredClaims
}

// TokenService signs and verifies tokens with a single shared secret.
// It is safe for concurrent use.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwtlib.Parser
}

// NewTokenService creates a TokenService from cfg.
func NewTokenService(cfg KeyConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(cfg.Secret))
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("jwt ttl must not be negative, got %s", cfg.TTL)
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &TokenService{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	s.parser = jwtlib.NewParser(s.parserOptions()...)
	return s, nil
}

// parserOptions builds JWT parser options based on the configuration.
func (s *TokenService) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}
	return opts
}

// Issue signs a token for p and returns it with its expiry.
func (s *TokenService) Issue(p *auth.Principal) (string, time.Time, error) {
	if p == nil || p.ID == uuid.Nil {
		return "", time.Time{}, errors.New("issuing token: principal has no id")
	}
	if !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("issuing token: unknown role %q", p.Role)
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role:  string(p.Role),
		Login: p.Login,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   p.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature and claims of tokenStr and returns the
// principal it names. It returns an error wrapping auth.ErrTokenExpired
// when the signature is valid but the token has expired, and one wrapping
// auth.ErrTokenInvalid for every other failure.
func (s *TokenService) Verify(tokenStr string) (*auth.Principal, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		// The parser checks the signature before the claims, so an expiry
		// error implies the signature was ours.
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", auth.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", auth.ErrTokenInvalid, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad sub claim: %v", auth.ErrTokenInvalid, err)
	}
	role, err := api.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrTokenInvalid, err)
	}

	return &auth.Principal{ID: id, Login: claims.Login, Role: role}, nil
}

// Authenticator reads bearer tokens from the Authorization header.
type Authenticator struct {
	tokens *TokenService
}

// NewAuthenticator creates an Authenticator backed by tokens.
func NewAuthenticator(tokens *TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate extracts a bearer token from the Authorization header and
// verifies it.
//
// Decision outcomes:
//   - Abstain: no Authorization header, a non-Bearer scheme, or an empty token
//   - No: bearer token present but invalid or expired
//   - Yes: valid token with populated Principal
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	// The scheme is case-insensitive (RFC 6750 section 2.1).
	scheme, tokenStr, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	p, err := a.tokens.Verify(tokenStr)
	if err != nil {
		return auth.AuthResult{Decision: auth.No, Err: err}
	}
	return auth.AuthResult{Decision: auth.Yes, Principal: p}
}
