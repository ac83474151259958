// Package di provides dependency injection configuration for the NextRead server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/nextreadapp/nextread-server/internal/auth"
	"github.com/nextreadapp/nextread-server/internal/config"
	"github.com/nextreadapp/nextread-server/internal/di/providers"
	"github.com/nextreadapp/nextread-server/internal/logger"
	"github.com/nextreadapp/nextread-server/internal/metadata/isbndb"
	"github.com/nextreadapp/nextread-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// External adapters
	do.Provide(injector, providers.ProvideISBNdbClient)
	do.Provide(injector, providers.ProvideGemini)
	do.Provide(injector, providers.ProvideVerifier)

	// Business services
	do.Provide(injector, providers.ProvideRecommendationService)
	do.Provide(injector, providers.ProvideSearchService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle
// management. This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*isbndb.Client](injector)
	_ = do.MustInvoke[*providers.GeminiHandle](injector)
	_ = do.MustInvoke[*auth.Verifier](injector)
	_ = do.MustInvoke[*service.RecommendationService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
