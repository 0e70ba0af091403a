package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/csr-lab/internal/config"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, gcp config.GCPConfig) (domain.Backend, error) {
	switch cfg.Provider {
	case config.ProviderOffline, "":
		return NewOfflineBackend(), nil
	case config.ProviderGemini:
		return NewGenAIBackend(ctx, GenAIOptions{Model: cfg.Model, APIKey: cfg.APIKey})
	case config.ProviderVertex:
		return NewGenAIBackend(ctx, GenAIOptions{Model: cfg.Model, Project: gcp.ProjectID, Location: gcp.Location})
	case config.ProviderOpenAI:
		return NewOpenAIBackend(OpenAIOptions{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case config.ProviderAzure:
		return NewOpenAIBackend(OpenAIOptions{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Azure:      true,
			APIVersion: cfg.APIVersion,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
