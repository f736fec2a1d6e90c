package llm

import "fmt"

// Config holds the connection settings for one OpenAI-compatible endpoint.
// Works with any provider that speaks the /chat/completions shape
// (OpenRouter, OpenAI, LM Studio, and similar).
type Config struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"` // seconds
	SiteURL     string  `json:"site_url,omitempty"`
	AppName     string  `json:"app_name,omitempty"`

	// RequireKey is false for local endpoints (LM Studio) that accept
	// requests without authentication.
	RequireKey bool `json:"require_key"`
}

// Validate checks the configuration before any request is made.
func (c *Config) Validate() error {
	if c.RequireKey && c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the request headers for the configured provider.
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}
	return headers
}
