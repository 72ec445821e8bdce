package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/auth/jwt"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be in range.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.jwt.secret is required and must be long enough for HS256.
	switch {
	case c.Auth.JWT.Secret == "":
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required"))
	case len(c.Auth.JWT.Secret) < jwt.MinSecretLength:
		errs = append(errs, fmt.Errorf("auth.jwt.secret must be at least %d bytes, got %d", jwt.MinSecretLength, len(c.Auth.JWT.Secret)))
	}
	if c.Auth.JWT.TTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.jwt.ttl must be > 0, got %s", c.Auth.JWT.TTL))
	}

	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be 0 or between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.SigninRateLimit < 0 {
		errs = append(errs, fmt.Errorf("auth.signin_rate_limit must be >= 0, got %d", c.Auth.SigninRateLimit))
	}
	for i, r := range c.Auth.SignupRoles {
		if !r.Valid() {
			errs = append(errs, fmt.Errorf("auth.signup_roles[%d]: unknown role %q", i, r))
		}
	}
	if c.Auth.BootstrapAdmin.Login != "" && c.Auth.BootstrapAdmin.Password == "" {
		errs = append(errs, fmt.Errorf("auth.bootstrap_admin.password or auth.bootstrap_admin.password_file is required when auth.bootstrap_admin.login is set"))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with /, got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// SignUpRoles returns the configured sign-up roles, defaulting to every role.
func (c *Config) SignUpRoles() []api.Role {
	if len(c.Auth.SignupRoles) == 0 {
		return []api.Role{api.RoleAdmin, api.RoleCommon}
	}
	return c.Auth.SignupRoles
}
