// Package providers contains dependency injection providers for the NextRead server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/nextreadapp/nextread-server/internal/auth"
	"github.com/nextreadapp/nextread-server/internal/config"
	"github.com/nextreadapp/nextread-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting NextRead Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"database_path", cfg.Database.Path,
	)

	return log, nil
}

// ProvideVerifier provides the identity token verifier.
func ProvideVerifier(i do.Injector) (*auth.Verifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewVerifier(cfg.Auth.JWTSecret), nil
}
