package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is tried when no explicit path is given; a missing file
// is not an error, the environment alone can configure everything.
const DefaultConfigFile = "subpipe.toml"

// fileConfig mirrors Config for TOML decoding. Booleans are pointers so an
// absent key is distinguishable from an explicit false.
type fileConfig struct {
	Provider struct {
		Name        string  `toml:"name"`
		APIKey      string  `toml:"api_key"`
		Endpoint    string  `toml:"endpoint"`
		Model       string  `toml:"model"`
		MaxTokens   int     `toml:"max_tokens"`
		Temperature float64 `toml:"temperature"`
		Timeout     int     `toml:"timeout"`
	} `toml:"provider"`
	Translate struct {
		SourceLanguage string `toml:"source_language"`
		TargetLanguage string `toml:"target_language"`
		Style          string `toml:"style"`
		BatchSize      int    `toml:"batch_size"`
		ContextLines   int    `toml:"context_lines"`
		RequestDelayMS int    `toml:"request_delay_ms"`
		OutputFormat   string `toml:"output_format"`
	} `toml:"translate"`
	Embed struct {
		Enabled        *bool `toml:"enabled"`
		SetDefault     *bool `toml:"set_default"`
		PreferMkvmerge *bool `toml:"prefer_mkvmerge"`
	} `toml:"embed"`
	Tools struct {
		FfmpegPath   string `toml:"ffmpeg_path"`
		FfprobePath  string `toml:"ffprobe_path"`
		MkvmergePath string `toml:"mkvmerge_path"`
	} `toml:"tools"`
	Watch struct {
		MediaDirs []string `toml:"media_dirs"`
		CronExpr  string   `toml:"cron_expr"`
	} `toml:"watch"`
	Storage struct {
		DBPath string `toml:"db_path"`
	} `toml:"storage"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

// LoadFile reads a TOML config file and returns it as an Option for
// NewFromEnv. The file overrides built-in defaults; environment variables
// still override the file.
func LoadFile(path string) (Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return fc.apply, nil
}

// LoadFileIfExists is LoadFile with a missing file degraded to a no-op.
func LoadFileIfExists(path string) (Option, error) {
	opt, err := LoadFile(path)
	if os.IsNotExist(err) {
		return func(*Config) {}, nil
	}
	return opt, err
}

func (fc fileConfig) apply(c *Config) {
	setString(&c.Provider.Name, fc.Provider.Name)
	setString(&c.Provider.APIKey, fc.Provider.APIKey)
	setString(&c.Provider.Endpoint, fc.Provider.Endpoint)
	setString(&c.Provider.Model, fc.Provider.Model)
	setInt(&c.Provider.MaxTokens, fc.Provider.MaxTokens)
	if fc.Provider.Temperature != 0 {
		c.Provider.Temperature = fc.Provider.Temperature
	}
	setInt(&c.Provider.Timeout, fc.Provider.Timeout)

	setString(&c.Translate.SourceLanguage, fc.Translate.SourceLanguage)
	setString(&c.Translate.TargetLanguage, fc.Translate.TargetLanguage)
	setString(&c.Translate.Style, fc.Translate.Style)
	setInt(&c.Translate.BatchSize, fc.Translate.BatchSize)
	setInt(&c.Translate.ContextLines, fc.Translate.ContextLines)
	setInt(&c.Translate.RequestDelayMS, fc.Translate.RequestDelayMS)
	setString(&c.Translate.OutputFormat, fc.Translate.OutputFormat)

	setBool(&c.Embed.Enabled, fc.Embed.Enabled)
	setBool(&c.Embed.SetDefault, fc.Embed.SetDefault)
	setBool(&c.Embed.PreferMkvmerge, fc.Embed.PreferMkvmerge)

	setString(&c.Tools.FfmpegPath, fc.Tools.FfmpegPath)
	setString(&c.Tools.FfprobePath, fc.Tools.FfprobePath)
	setString(&c.Tools.MkvmergePath, fc.Tools.MkvmergePath)

	if len(fc.Watch.MediaDirs) > 0 {
		c.Watch.MediaDirs = fc.Watch.MediaDirs
	}
	setString(&c.Watch.CronExpr, fc.Watch.CronExpr)
	setString(&c.Storage.DBPath, fc.Storage.DBPath)
	setString(&c.Log.Level, fc.Log.Level)
	setString(&c.Log.File, fc.Log.File)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
