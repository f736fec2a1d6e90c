package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/lang"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/pipeline"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/translator"
)

// Config holds all application configuration. Values come from defaults,
// an optional TOML file and environment variables, in that order of
// precedence (environment wins).
//
// Environment Variables:
//
// Provider Configuration:
// - PROVIDER: translation provider: openai, openrouter, gemini, ollama, lmstudio (default: openai)
// - LLM_API_KEY: API key for the provider (required except for ollama/lmstudio)
// - LLM_ENDPOINT: API endpoint URL (default: the provider's public endpoint)
// - LLM_MODEL: Model name to use (required)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
//
// Translation Configuration:
// - SOURCE_LANG: source language tag, empty lets the pipeline detect it
// - TARGET_LANG: target language tag (default: pt-BR)
// - TRANSLATION_STYLE: natural, literal, localized, formal, casual, honorifics
// - BATCH_SIZE: lines per provider request (default: 20)
// - CONTEXT_LINES: translated lines carried between batches (default: 2)
// - REQUEST_DELAY_MS: pause between provider requests (default: 0)
// - OUTPUT_FORMAT: srt, ass or vtt; empty keeps the source format
//
// Embed Configuration:
// - EMBED_ENABLED: re-embed the translated track into the video (default: false)
// - EMBED_SET_DEFAULT: mark the embedded track as default (default: false)
// - PREFER_MKVMERGE: use mkvmerge for mkv embeds when available (default: true)
//
// Tool Configuration:
// - FFMPEG_PATH, FFPROBE_PATH, MKVMERGE_PATH: binary overrides
//
// Watch Configuration:
// - MEDIA_DIRS: comma-separated directories scanned by the watcher
// - CRON_EXPR: watch schedule (default: "0 3 * * *")
//
// Storage Configuration:
// - DB_PATH: SQLite database path (default: data/subpipe.db)
//
// Log Configuration:
// - LOG_LEVEL: debug, info, warn, error or fatal (default: info)
// - LOG_FILE: also write watch-mode logs to this file
type Config struct {
	Provider  ProviderConfig  `toml:"provider"`
	Translate TranslateConfig `toml:"translate"`
	Embed     EmbedConfig     `toml:"embed"`
	Tools     ToolsConfig     `toml:"tools"`
	Watch     WatchConfig     `toml:"watch"`
	Storage   StorageConfig   `toml:"storage"`
	Log       LogConfig       `toml:"log"`
}

// ProviderConfig selects and configures the translation provider.
type ProviderConfig struct {
	Name        string  `toml:"name"`
	APIKey      string  `toml:"api_key"`
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Timeout     int     `toml:"timeout"` // seconds
}

// TranslateConfig holds the per-run translation parameters.
type TranslateConfig struct {
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	Style          string `toml:"style"`
	BatchSize      int    `toml:"batch_size"`
	ContextLines   int    `toml:"context_lines"`
	RequestDelayMS int    `toml:"request_delay_ms"`
	OutputFormat   string `toml:"output_format"`
}

// EmbedConfig controls what happens to the video after translation.
type EmbedConfig struct {
	Enabled        bool `toml:"enabled"`
	SetDefault     bool `toml:"set_default"`
	PreferMkvmerge bool `toml:"prefer_mkvmerge"`
}

// ToolsConfig overrides the external binaries.
type ToolsConfig struct {
	FfmpegPath   string `toml:"ffmpeg_path"`
	FfprobePath  string `toml:"ffprobe_path"`
	MkvmergePath string `toml:"mkvmerge_path"`
}

// WatchConfig configures the scheduled library scan.
type WatchConfig struct {
	MediaDirs []string `toml:"media_dirs"`
	CronExpr  string   `toml:"cron_expr"`
}

// StorageConfig locates the persistence layer.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// NewFromEnv creates a Config from defaults and environment variables, then
// applies options (file overrides loaded by the caller come in as options,
// applied before the environment is re-read so env always wins).
func NewFromEnv(opts ...Option) (*Config, error) {
	config := defaults()

	for _, opt := range opts {
		opt(config)
	}
	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        translator.ProviderOpenAI,
			MaxTokens:   8000,
			Temperature: 0.3,
			Timeout:     120,
		},
		Translate: TranslateConfig{
			TargetLanguage: "pt-BR",
			Style:          translator.StyleNatural,
			BatchSize:      20,
			ContextLines:   2,
		},
		Embed: EmbedConfig{
			PreferMkvmerge: true,
		},
		Watch: WatchConfig{
			CronExpr: "0 3 * * *",
		},
		Storage: StorageConfig{
			DBPath: "data/subpipe.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func applyEnv(c *Config) {
	c.Provider.Name = getEnvString("PROVIDER", c.Provider.Name)
	c.Provider.APIKey = getEnvString("LLM_API_KEY", c.Provider.APIKey)
	c.Provider.Endpoint = getEnvString("LLM_ENDPOINT", c.Provider.Endpoint)
	c.Provider.Model = getEnvString("LLM_MODEL", c.Provider.Model)
	c.Provider.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.Provider.MaxTokens)
	c.Provider.Temperature = getEnvFloat("LLM_TEMPERATURE", c.Provider.Temperature)
	c.Provider.Timeout = getEnvInt("LLM_TIMEOUT", c.Provider.Timeout)

	c.Translate.SourceLanguage = getEnvString("SOURCE_LANG", c.Translate.SourceLanguage)
	c.Translate.TargetLanguage = getEnvString("TARGET_LANG", c.Translate.TargetLanguage)
	c.Translate.Style = getEnvString("TRANSLATION_STYLE", c.Translate.Style)
	c.Translate.BatchSize = getEnvInt("BATCH_SIZE", c.Translate.BatchSize)
	c.Translate.ContextLines = getEnvInt("CONTEXT_LINES", c.Translate.ContextLines)
	c.Translate.RequestDelayMS = getEnvInt("REQUEST_DELAY_MS", c.Translate.RequestDelayMS)
	c.Translate.OutputFormat = getEnvString("OUTPUT_FORMAT", c.Translate.OutputFormat)

	c.Embed.Enabled = getEnvBool("EMBED_ENABLED", c.Embed.Enabled)
	c.Embed.SetDefault = getEnvBool("EMBED_SET_DEFAULT", c.Embed.SetDefault)
	c.Embed.PreferMkvmerge = getEnvBool("PREFER_MKVMERGE", c.Embed.PreferMkvmerge)

	c.Tools.FfmpegPath = getEnvString("FFMPEG_PATH", c.Tools.FfmpegPath)
	c.Tools.FfprobePath = getEnvString("FFPROBE_PATH", c.Tools.FfprobePath)
	c.Tools.MkvmergePath = getEnvString("MKVMERGE_PATH", c.Tools.MkvmergePath)

	if dirs := getEnvString("MEDIA_DIRS", ""); dirs != "" {
		c.Watch.MediaDirs = splitDirs(dirs)
	}
	c.Watch.CronExpr = getEnvString("CRON_EXPR", c.Watch.CronExpr)

	c.Storage.DBPath = getEnvString("DB_PATH", c.Storage.DBPath)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvString("LOG_FILE", c.Log.File)
}

func splitDirs(value string) []string {
	parts := strings.Split(value, ",")
	dirs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			dirs = append(dirs, p)
		}
	}
	return dirs
}

// Validate checks everything that can be checked without touching the
// network or the filesystem, so misconfiguration fails before any work
// starts.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case translator.ProviderOpenAI, translator.ProviderOpenRouter,
		translator.ProviderGemini, translator.ProviderOllama, translator.ProviderLMStudio:
	default:
		return fmt.Errorf("unsupported provider: %q", c.Provider.Name)
	}

	// Local providers do not authenticate.
	needsKey := c.Provider.Name != translator.ProviderOllama &&
		c.Provider.Name != translator.ProviderLMStudio
	if needsKey && strings.TrimSpace(c.Provider.APIKey) == "" {
		return fmt.Errorf("LLM_API_KEY is required for provider %s", c.Provider.Name)
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}

	if strings.TrimSpace(c.Translate.TargetLanguage) == "" {
		return fmt.Errorf("TARGET_LANG is required")
	}
	if lang.ToMediaCode(c.Translate.TargetLanguage) == lang.Und {
		return fmt.Errorf("invalid target language: %q", c.Translate.TargetLanguage)
	}
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Translate.BatchSize)
	}
	if c.Translate.ContextLines < 0 {
		return fmt.Errorf("context lines must not be negative, got %d", c.Translate.ContextLines)
	}
	if c.Translate.RequestDelayMS < 0 {
		return fmt.Errorf("request delay must not be negative, got %d", c.Translate.RequestDelayMS)
	}
	switch c.Translate.OutputFormat {
	case "", "srt", "ass", "vtt":
	default:
		return fmt.Errorf("unsupported output format: %q", c.Translate.OutputFormat)
	}

	if c.Watch.CronExpr != "" {
		if _, err := cron.ParseStandard(c.Watch.CronExpr); err != nil {
			return fmt.Errorf("invalid cron_expr: %w", err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unsupported log level: %q", c.Log.Level)
	}
	return nil
}

// TranslatorSettings maps the provider section onto translator.Settings.
func (c *Config) TranslatorSettings() translator.Settings {
	return translator.Settings{
		Provider:    c.Provider.Name,
		APIKey:      c.Provider.APIKey,
		Endpoint:    c.Provider.Endpoint,
		Model:       c.Provider.Model,
		MaxTokens:   c.Provider.MaxTokens,
		Temperature: c.Provider.Temperature,
		Timeout:     c.Provider.Timeout,
	}
}

// PipelineOptions maps the translate and embed sections onto run options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		SourceLang:   c.Translate.SourceLanguage,
		TargetLang:   c.Translate.TargetLanguage,
		Style:        c.Translate.Style,
		OutputFormat: c.Translate.OutputFormat,
		TrackIndex:   -1,
		BatchSize:    c.Translate.BatchSize,
		ContextLines: c.Translate.ContextLines,
		RequestDelay: time.Duration(c.Translate.RequestDelayMS) * time.Millisecond,
		EmbedEnabled: c.Embed.Enabled,
		SetDefault:   c.Embed.SetDefault,
	}
}

// getEnvString gets a string value from environment variables with default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
