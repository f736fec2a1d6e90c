package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/translator"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, translator.ProviderOpenAI, cfg.Provider.Name)
	assert.Equal(t, 8000, cfg.Provider.MaxTokens)
	assert.Equal(t, 120, cfg.Provider.Timeout)
	assert.Equal(t, "pt-BR", cfg.Translate.TargetLanguage)
	assert.Equal(t, translator.StyleNatural, cfg.Translate.Style)
	assert.Equal(t, 20, cfg.Translate.BatchSize)
	assert.Equal(t, 2, cfg.Translate.ContextLines)
	assert.False(t, cfg.Embed.Enabled)
	assert.True(t, cfg.Embed.PreferMkvmerge)
	assert.Equal(t, "0 3 * * *", cfg.Watch.CronExpr)
	assert.Equal(t, "data/subpipe.db", cfg.Storage.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.File)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "llama3")
	t.Setenv("TARGET_LANG", "ja")
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("REQUEST_DELAY_MS", "250")
	t.Setenv("EMBED_ENABLED", "true")
	t.Setenv("MEDIA_DIRS", "/movies, /shows,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/subpipe.log")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, translator.ProviderOllama, cfg.Provider.Name)
	assert.Equal(t, "ja", cfg.Translate.TargetLanguage)
	assert.Equal(t, 5, cfg.Translate.BatchSize)
	assert.Equal(t, 250, cfg.Translate.RequestDelayMS)
	assert.True(t, cfg.Embed.Enabled)
	assert.Equal(t, []string{"/movies", "/shows"}, cfg.Watch.MediaDirs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/subpipe.log", cfg.Log.File)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Provider.APIKey = "sk-test"
		cfg.Provider.Model = "gpt-4o-mini"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := valid()
		cfg.Provider.APIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "LLM_API_KEY")
	})

	t.Run("local providers need no key", func(t *testing.T) {
		for _, name := range []string{translator.ProviderOllama, translator.ProviderLMStudio} {
			cfg := valid()
			cfg.Provider.Name = name
			cfg.Provider.APIKey = ""
			assert.NoError(t, cfg.Validate(), name)
		}
	})

	t.Run("unsupported provider", func(t *testing.T) {
		cfg := valid()
		cfg.Provider.Name = "skynet"
		assert.ErrorContains(t, cfg.Validate(), "unsupported provider")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := valid()
		cfg.Provider.Model = ""
		assert.ErrorContains(t, cfg.Validate(), "LLM_MODEL")
	})

	t.Run("missing target language", func(t *testing.T) {
		cfg := valid()
		cfg.Translate.TargetLanguage = ""
		assert.ErrorContains(t, cfg.Validate(), "TARGET_LANG")
	})

	t.Run("zero batch size", func(t *testing.T) {
		cfg := valid()
		cfg.Translate.BatchSize = 0
		assert.ErrorContains(t, cfg.Validate(), "batch size")
	})

	t.Run("bad output format", func(t *testing.T) {
		cfg := valid()
		cfg.Translate.OutputFormat = "sub"
		assert.ErrorContains(t, cfg.Validate(), "output format")
	})

	t.Run("bad cron", func(t *testing.T) {
		cfg := valid()
		cfg.Watch.CronExpr = "every day at 3"
		assert.ErrorContains(t, cfg.Validate(), "cron_expr")
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := valid()
		cfg.Log.Level = "verbose"
		assert.ErrorContains(t, cfg.Validate(), "log level")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subpipe.toml")
	content := `
[provider]
name = "openrouter"
api_key = "sk-from-file"
model = "google/gemini-2.5-flash"

[translate]
target_language = "ja"
batch_size = 5

[embed]
enabled = true
prefer_mkvmerge = false

[watch]
media_dirs = ["/anime"]
cron_expr = "30 4 * * *"

[log]
level = "warn"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	opt, err := LoadFile(path)
	require.NoError(t, err)

	// The environment still wins over the file.
	t.Setenv("BATCH_SIZE", "7")

	cfg, err := NewFromEnv(opt)
	require.NoError(t, err)

	assert.Equal(t, translator.ProviderOpenRouter, cfg.Provider.Name)
	assert.Equal(t, "sk-from-file", cfg.Provider.APIKey)
	assert.Equal(t, "ja", cfg.Translate.TargetLanguage)
	assert.Equal(t, 7, cfg.Translate.BatchSize)
	assert.True(t, cfg.Embed.Enabled)
	assert.False(t, cfg.Embed.PreferMkvmerge, "explicit false in the file overrides the default")
	assert.Equal(t, []string{"/anime"}, cfg.Watch.MediaDirs)
	assert.Equal(t, "30 4 * * *", cfg.Watch.CronExpr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subpipe.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [toml"), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestLoadFileIfExists_Missing(t *testing.T) {
	opt, err := LoadFileIfExists(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	cfg := defaults()
	opt(cfg)
	assert.Equal(t, defaults(), cfg, "missing file must not change anything")
}

func TestPipelineOptions(t *testing.T) {
	cfg := defaults()
	cfg.Translate.SourceLanguage = "en"
	cfg.Translate.RequestDelayMS = 500
	cfg.Embed.Enabled = true
	cfg.Embed.SetDefault = true

	opts := cfg.PipelineOptions()
	assert.Equal(t, "en", opts.SourceLang)
	assert.Equal(t, "pt-BR", opts.TargetLang)
	assert.Equal(t, -1, opts.TrackIndex)
	assert.Equal(t, 500*time.Millisecond, opts.RequestDelay)
	assert.True(t, opts.EmbedEnabled)
	assert.True(t, opts.SetDefault)
}

func TestTranslatorSettings(t *testing.T) {
	cfg := defaults()
	cfg.Provider.Name = translator.ProviderGemini
	cfg.Provider.APIKey = "g-key"
	cfg.Provider.Model = "gemini-2.5-flash"

	settings := cfg.TranslatorSettings()
	assert.Equal(t, translator.ProviderGemini, settings.Provider)
	assert.Equal(t, "g-key", settings.APIKey)
	assert.Equal(t, "gemini-2.5-flash", settings.Model)
	assert.Equal(t, 8000, settings.MaxTokens)
}
