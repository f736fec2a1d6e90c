package translator

import (
	"context"
	"fmt"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/llm"
)

const (
	defaultOpenAIEndpoint     = "https://api.openai.com/v1"
	defaultOpenRouterEndpoint = "https://openrouter.ai/api/v1"
	defaultLMStudioEndpoint   = "http://localhost:1234/v1"
)

// openAIProvider serves every OpenAI-compatible endpoint: OpenAI itself,
// OpenRouter, and LM Studio's local server.
type openAIProvider struct {
	name   string
	client *llm.Client
}

func newOpenAIProvider(settings Settings) (*openAIProvider, error) {
	endpoint := settings.Endpoint
	requireKey := true
	switch settings.Provider {
	case ProviderOpenAI:
		if endpoint == "" {
			endpoint = defaultOpenAIEndpoint
		}
	case ProviderOpenRouter:
		if endpoint == "" {
			endpoint = defaultOpenRouterEndpoint
		}
	case ProviderLMStudio:
		if endpoint == "" {
			endpoint = defaultLMStudioEndpoint
		}
		requireKey = false
	}

	config := &llm.Config{
		APIKey:      settings.APIKey,
		APIURL:      endpoint,
		Model:       settings.Model,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
		Timeout:     settings.Timeout,
		RequireKey:  requireKey,
	}
	if settings.Provider == ProviderOpenRouter {
		config.AppName = "subtitle-track-pipeline"
	}

	client, err := llm.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", settings.Provider, err)
	}
	return &openAIProvider{name: settings.Provider, client: client}, nil
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) TranslateBatch(ctx context.Context, req Request) ([]string, error) {
	content, err := p.client.Complete(ctx, buildUserPrompt(req),
		buildSystemPrompt(req.Style, req.SourceLang, req.TargetLang))
	if err != nil {
		return nil, err
	}
	return parseNumberedResponse(content, len(req.Lines)), nil
}

func (p *openAIProvider) ListModels(ctx context.Context) ([]Model, error) {
	infos, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	models := make([]Model, len(infos))
	for i, info := range infos {
		models[i] = Model{ID: info.ID, Name: info.Name}
	}
	return models, nil
}
