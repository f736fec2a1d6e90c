package translator

import (
	"context"
	"fmt"

	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

// Provider identifiers accepted by New.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
	ProviderLMStudio   = "lmstudio"
)

// Settings selects and configures one translation provider.
type Settings struct {
	Provider    string
	APIKey      string
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds
}

// Request is one batch of subtitle texts to translate.
//
// ContextLines carry the tail of the previous batch's translations so the
// provider keeps tone and terminology consistent across batch boundaries.
// They are never part of the response.
type Request struct {
	Lines        []string
	ContextLines []string
	SourceLang   string
	TargetLang   string
	Style        string
}

// Model describes one model a provider offers.
type Model struct {
	ID   string
	Name string
}

// Provider translates batches of subtitle lines.
//
// TranslateBatch returns the translations it could parse from the provider's
// response, in input order. Callers own the count check; a short or long
// result is returned as-is, never padded.
type Provider interface {
	Name() string
	TranslateBatch(ctx context.Context, req Request) ([]string, error)
	ListModels(ctx context.Context) ([]Model, error)
}

// New builds the provider selected by settings. Providers that speak the
// OpenAI chat shape share one implementation; gemini and ollama use their
// native APIs.
func New(settings Settings) (Provider, error) {
	switch settings.Provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderLMStudio:
		return newOpenAIProvider(settings)
	case ProviderGemini:
		return newGeminiProvider(settings)
	case ProviderOllama:
		return newOllamaProvider(settings)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", settings.Provider)
	}
}

// Models lists the models available from the configured provider, falling
// back to the static preset list when the provider cannot be reached.
func Models(ctx context.Context, settings Settings) ([]Model, error) {
	provider, err := New(settings)
	if err != nil {
		return nil, err
	}
	models, err := provider.ListModels(ctx)
	if err != nil || len(models) == 0 {
		if err != nil {
			log.Warn("Model listing failed for %s, using presets: %v", settings.Provider, err)
		}
		return PresetModels(settings.Provider), nil
	}
	return models, nil
}
