package main

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/config"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/media"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/persistence"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/tracks"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		// A local .env is a convenience for development; missing is fine.
		_ = godotenv.Load()

		var opt config.Option
		var err error
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			opt, err = config.LoadFile(path)
		} else {
			opt, err = config.LoadFileIfExists(config.DefaultConfigFile)
		}
		if err != nil {
			c.configErr = err
			return
		}
		c.config, c.configErr = config.NewFromEnv(opt)
		if c.configErr == nil {
			log.GetLogger().SetLevel(log.ParseLevel(c.config.Log.Level))
		}
	})
	return c.config, c.configErr
}

// appDeps bundles the shared wiring behind every command that touches media
// files: the toolchain, the persistence layer and the track lifecycle
// manager built on both.
type appDeps struct {
	cfg       *config.Config
	store     *persistence.SQLiteStore
	toolchain *media.FFmpegToolchain
	lifecycle *tracks.Manager
}

func (c *commandContext) withDeps(fn func(*appDeps) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	toolchain := media.NewFFmpegToolchain(
		media.WithCommands(cfg.Tools.FfmpegPath, cfg.Tools.FfprobePath, cfg.Tools.MkvmergePath),
		media.WithMkvmergePreferred(cfg.Embed.PreferMkvmerge),
	)

	return fn(&appDeps{
		cfg:       cfg,
		store:     store,
		toolchain: toolchain,
		lifecycle: tracks.NewManager(toolchain, store),
	})
}
