package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// ollamaProvider talks to a local Ollama server through its native API.
// No API key is involved.
type ollamaProvider struct {
	endpoint   string
	model      string
	temp       float64
	httpClient *http.Client
}

func newOllamaProvider(settings Settings) (*ollamaProvider, error) {
	if settings.Model == "" {
		return nil, fmt.Errorf("ollama provider: model is required")
	}
	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	return &ollamaProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    settings.Model,
		temp:     settings.Temperature,
		httpClient: &http.Client{
			Timeout: time.Duration(settings.Timeout) * time.Second,
		},
	}, nil
}

func (p *ollamaProvider) Name() string {
	return ProviderOllama
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

func (p *ollamaProvider) TranslateBatch(ctx context.Context, req Request) ([]string, error) {
	chatReq := ollamaChatRequest{
		Model: p.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: buildSystemPrompt(req.Style, req.SourceLang, req.TargetLang)},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Stream: false,
	}
	chatReq.Options.Temperature = p.temp

	body, err := p.post(ctx, "/api/chat", chatReq)
	if err != nil {
		return nil, err
	}

	var response ollamaChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("Ollama error: %s", response.Error)
	}
	return parseNumberedResponse(response.Message.Content, len(req.Lines)), nil
}

type ollamaTagList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *ollamaProvider) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama tag list request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var list ollamaTagList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama tag list: %w", err)
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{ID: m.Name, Name: m.Name})
	}
	return models, nil
}

func (p *ollamaProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
