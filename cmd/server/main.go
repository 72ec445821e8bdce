// Command server runs the StockFlow inventory API.
//
// Configuration is read from a YAML file and STOCKFLOW_* environment
// variables (see pkg/config). The only flag is:
//
//	-config  path to the YAML config file (optional)
//
// A signing secret is always required, for example:
//
//	STOCKFLOW_AUTH_JWT_SECRET=$(openssl rand -hex 32) server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/auth"
	"github.com/stockflow/stockflow/pkg/auth/jwt"
	"github.com/stockflow/stockflow/pkg/config"
	"github.com/stockflow/stockflow/pkg/debug"
	"github.com/stockflow/stockflow/pkg/inventory"
	"github.com/stockflow/stockflow/pkg/storage"
	"github.com/stockflow/stockflow/pkg/storage/memory"
	"github.com/stockflow/stockflow/pkg/storage/postgres"
	transporthttp "github.com/stockflow/stockflow/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	if cats := debug.Categories(); len(cats) > 0 {
		logger.Info("debug categories enabled", "categories", cats)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openStore(startCtx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	tokens, err := jwt.NewTokenService(jwt.KeyConfig{
		Secret: []byte(cfg.Auth.JWT.Secret),
		Issuer: cfg.Auth.JWT.Issuer,
		TTL:    cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authSvc, err := auth.NewService(store, hasher, tokens,
		auth.WithSignUpRoles(cfg.SignUpRoles()...),
		auth.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	if admin := cfg.Auth.BootstrapAdmin; admin.Login != "" {
		created, err := authSvc.EnsureUser(startCtx, admin.Login, admin.Password, api.RoleAdmin)
		if err != nil {
			return fmt.Errorf("creating bootstrap admin: %w", err)
		}
		if created {
			logger.Info("bootstrap admin created", "login", admin.Login)
		}
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	handler := transporthttp.NewHandler(transporthttp.HandlerConfig{
		Services: transporthttp.Services{
			Auth:     authSvc,
			Products: inventory.NewProductService(store, logger),
			Users:    inventory.NewUserService(store, hasher, logger),
			Health:   store,
		},
		Authenticator: jwt.NewAuthenticator(tokens),
		MaxBodySize:   cfg.Server.MaxBodySize,
		AuthRateLimit: cfg.Auth.SigninRateLimit,
		MetricsPath:   metricsPath,
		Logger:        logger,
	})

	srv := transporthttp.NewServer(handler,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"metrics", metricsPath,
	)
	return srv.ListenAndServe()
}

// openStore creates the configured storage backend.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres", "max_conns", cfg.Postgres.MaxConns)
		return store, nil
	default:
		slog.Info("storage enabled", "type", "memory")
		return memory.New(), nil
	}
}
