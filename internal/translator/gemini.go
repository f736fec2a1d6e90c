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

	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// geminiProvider talks to the native Gemini generateContent API.
type geminiProvider struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	temp       float64
	httpClient *http.Client
}

func newGeminiProvider(settings Settings) (*geminiProvider, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("gemini provider: API key is required")
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("gemini provider: model is required")
	}
	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	return &geminiProvider{
		apiKey:    settings.APIKey,
		endpoint:  strings.TrimRight(endpoint, "/"),
		model:     settings.Model,
		maxTokens: settings.MaxTokens,
		temp:      settings.Temperature,
		httpClient: &http.Client{
			Timeout: time.Duration(settings.Timeout) * time.Second,
		},
	}, nil
}

func (p *geminiProvider) Name() string {
	return ProviderGemini
}

type geminiGenerateRequest struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
	SafetySettings    []geminiSafety  `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Subtitle dialogue trips the default filters often enough that all
// categories are relaxed for translation requests.
var geminiSafetyOff = []geminiSafety{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

func (p *geminiProvider) TranslateBatch(ctx context.Context, req Request) ([]string, error) {
	reqBody := geminiGenerateRequest{
		SystemInstruction: geminiContent{
			Parts: []geminiPart{{Text: buildSystemPrompt(req.Style, req.SourceLang, req.TargetLang)}},
		},
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: buildUserPrompt(req)}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     p.temp,
			MaxOutputTokens: p.maxTokens,
		},
		SafetySettings: geminiSafetyOff,
	}

	url := fmt.Sprintf("%s/%s:generateContent", p.endpoint, p.model)
	body, err := p.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var response geminiGenerateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini response: %w", err)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		if response.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("Gemini blocked the request: %s", response.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("empty Gemini response")
	}
	if fr := response.Candidates[0].FinishReason; fr != "" && fr != "STOP" {
		log.Warn("Gemini finished with reason %s", fr)
	}

	return parseNumberedResponse(response.Candidates[0].Content.Parts[0].Text, len(req.Lines)), nil
}

type geminiModelList struct {
	Models []struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"models"`
}

func (p *geminiProvider) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Gemini model list request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(body))
	}

	var list geminiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini model list: %w", err)
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		// API returns fully qualified names like "models/gemini-2.0-flash".
		id := strings.TrimPrefix(m.Name, "models/")
		models = append(models, Model{ID: id, Name: m.DisplayName})
	}
	return models, nil
}

func (p *geminiProvider) post(ctx context.Context, url string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Gemini API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
