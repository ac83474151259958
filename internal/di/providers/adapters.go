package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/nextreadapp/nextread-server/internal/config"
	"github.com/nextreadapp/nextread-server/internal/logger"
	"github.com/nextreadapp/nextread-server/internal/metadata/isbndb"
	"github.com/nextreadapp/nextread-server/internal/recommender"
)

// ProvideISBNdbClient provides the metadata client.
func ProvideISBNdbClient(i do.Injector) (*isbndb.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return isbndb.New(cfg.ISBNdb.APIKey, cfg.ISBNdb.BaseURL, log.Logger), nil
}

// GeminiHandle wraps the Gemini generator with Shutdownable.
type GeminiHandle struct {
	*recommender.Gemini
}

// Shutdown implements do.Shutdownable.
func (h *GeminiHandle) Shutdown() error {
	return h.Close()
}

// ProvideGemini provides the recommendation generator.
func ProvideGemini(i do.Injector) (*GeminiHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	gemini, err := recommender.NewGemini(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Generator ready", "model", cfg.Gemini.Model)

	return &GeminiHandle{Gemini: gemini}, nil
}
