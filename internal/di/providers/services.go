package providers

import (
	"github.com/samber/do/v2"

	"github.com/nextreadapp/nextread-server/internal/config"
	"github.com/nextreadapp/nextread-server/internal/logger"
	"github.com/nextreadapp/nextread-server/internal/metadata/isbndb"
	"github.com/nextreadapp/nextread-server/internal/service"
)

// ProvideRecommendationService provides the recommendation orchestrator.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	metadata := do.MustInvoke[*isbndb.Client](i)
	geminiHandle := do.MustInvoke[*GeminiHandle](i)

	return service.NewRecommendationService(
		storeHandle.Store,
		metadata,
		geminiHandle.Gemini,
		cfg.Quota.MaxRecommendations,
		log.Logger,
	), nil
}

// ProvideSearchService provides the catalog search proxy.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	metadata := do.MustInvoke[*isbndb.Client](i)

	return service.NewSearchService(metadata, log.Logger), nil
}
