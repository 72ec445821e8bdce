// Package config provides unified configuration for the StockFlow server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (STOCKFLOW_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/stockflow/stockflow/pkg/api"
)

// Config holds all configuration for the StockFlow server.
type Config struct {
	Server        ServerConfig        `yaml:"server" split_words:"true"`
	Storage       StorageConfig       `yaml:"storage" split_words:"true"`
	Auth          AuthConfig          `yaml:"auth" split_words:"true"`
	Observability ObservabilityConfig `yaml:"observability" split_words:"true"`
	Logging       LoggingConfig       `yaml:"logging" split_words:"true"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`    // default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size" split_words:"true"`    // default: 1 MiB
}

// StorageConfig selects and configures the credential and inventory store.
type StorageConfig struct {
	Type     string         `yaml:"type" split_words:"true"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres" split_words:"true"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn" split_words:"true"`
	DSNFile        string `yaml:"dsn_file" split_words:"true"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns" split_words:"true"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start" split_words:"true"` // default: true
}

// AuthConfig holds token, password, and sign-up settings.
type AuthConfig struct {
	JWT JWTConfig `yaml:"jwt" split_words:"true"`

	// BcryptCost is the bcrypt work factor. 0 selects the library default.
	BcryptCost int `yaml:"bcrypt_cost" split_words:"true"`

	// SigninRateLimit is the number of /auth/* requests per minute allowed
	// from one client IP. 0 disables throttling.
	SigninRateLimit int `yaml:"signin_rate_limit" split_words:"true"` // default: 20

	BootstrapAdmin BootstrapAdminConfig `yaml:"bootstrap_admin" split_words:"true"`

	// SignupRoles lists the roles self-service sign-up may request.
	SignupRoles []api.Role `yaml:"signup_roles" split_words:"true"` // default: [ADMIN, COMMON]
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret     string        `yaml:"secret" split_words:"true"`
	SecretFile string        `yaml:"secret_file" split_words:"true"` // _file variant for secret
	Issuer     string        `yaml:"issuer" split_words:"true"`      // default: "stockflow"
	TTL        time.Duration `yaml:"ttl" split_words:"true"`         // default: 2h
}

// BootstrapAdminConfig describes an administrator created at startup when
// the login does not exist yet.
type BootstrapAdminConfig struct {
	Login        string `yaml:"login" split_words:"true"`
	Password     string `yaml:"password" split_words:"true"`
	PasswordFile string `yaml:"password_file" split_words:"true"` // _file variant for password
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" split_words:"true"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"` // default: true
	Path    string `yaml:"path" split_words:"true"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. STOCKFLOW_LOG_LEVEL and
// STOCKFLOW_DEBUG are honored by pkg/debug as well.
type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Format string `yaml:"format" split_words:"true"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug" split_words:"true"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     1 << 20,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:       25,
				MigrateOnStart: true,
			},
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				Issuer: "stockflow",
				TTL:    2 * time.Hour,
			},
			SigninRateLimit: 20,
			SignupRoles:     []api.Role{api.RoleAdmin, api.RoleCommon},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
