package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/pipeline"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/service"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/translator"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var scanNow bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan the media directories on a schedule and translate new videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeps(func(deps *appDeps) error {
				if len(deps.cfg.Watch.MediaDirs) == 0 {
					return errors.New("no media directories configured; set MEDIA_DIRS or [watch] media_dirs")
				}
				if err := deps.toolchain.Verify(cmd.Context()); err != nil {
					return err
				}

				// Daemon output goes to a file when one is configured.
				if path := deps.cfg.Log.File; path != "" {
					fileLogger, err := log.NewFileLogger(path, log.ParseLevel(deps.cfg.Log.Level))
					if err != nil {
						return fmt.Errorf("open log file: %w", err)
					}
					defer fileLogger.Close()
					log.UseLogger(fileLogger.Logger)
				}

				// One watcher per database; a second instance would race the
				// same containers.
				lock := flock.New(deps.cfg.Storage.DBPath + ".lock")
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire lock: %w", err)
				}
				if !ok {
					return errors.New("another subpipe watch instance is already running")
				}
				defer func() { _ = lock.Unlock() }()

				provider, err := translator.New(deps.cfg.TranslatorSettings())
				if err != nil {
					return err
				}
				runner := pipeline.NewRunner(deps.toolchain, provider, deps.lifecycle, deps.store, nil)

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				c := cron.New()
				watcher := service.NewWatcher(deps.cfg, deps.toolchain, runner, deps.store, c)
				if err := watcher.Schedule(runCtx); err != nil {
					return err
				}

				c.Start()
				log.Info("Watching %v on schedule %q", deps.cfg.Watch.MediaDirs, deps.cfg.Watch.CronExpr)

				if scanNow {
					if _, err := watcher.ScanOnce(runCtx); err != nil {
						log.Error("Initial scan failed: %v", err)
					}
				}

				<-runCtx.Done()
				log.Info("Shutting down")
				<-c.Stop().Done()
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&scanNow, "now", false, "Run one scan immediately instead of waiting for the schedule")

	return cmd
}
