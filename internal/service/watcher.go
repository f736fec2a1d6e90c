package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/config"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/lang"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/media"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/persistence"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/pipeline"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

// videoExts are the container formats the watcher picks up.
var videoExts = []string{".mkv", ".mp4", ".avi", ".mov", ".webm"}

// PipelineRunner is the slice of the pipeline the watcher drives.
type PipelineRunner interface {
	Run(ctx context.Context, paths []string, opts pipeline.Options) (pipeline.Snapshot, error)
}

// History is the slice of the persistence layer the watcher reads.
type History interface {
	GetProcessed(ctx context.Context, videoPath, targetLang string) (persistence.ProcessedFile, bool, error)
}

// Watcher scans the configured media directories on a cron schedule and
// feeds unprocessed videos to the pipeline. Files already carrying the
// target language, and files a previous run completed, are skipped; failed
// files are retried on the next scan.
type Watcher struct {
	cfg       *config.Config
	toolchain media.Toolchain
	runner    PipelineRunner
	history   History
	cron      *cron.Cron

	group singleflight.Group
}

func NewWatcher(cfg *config.Config, toolchain media.Toolchain, runner PipelineRunner, history History, c *cron.Cron) *Watcher {
	return &Watcher{
		cfg:       cfg,
		toolchain: toolchain,
		runner:    runner,
		history:   history,
		cron:      c,
	}
}

// Schedule registers the scan on the watcher's cron. The caller owns
// starting and stopping the cron itself.
func (w *Watcher) Schedule(ctx context.Context) error {
	log.Info("Scheduling library scan with cron expression %q", w.cfg.Watch.CronExpr)
	_, err := w.cron.AddFunc(w.cfg.Watch.CronExpr, func() {
		if _, err := w.ScanOnce(ctx); err != nil {
			log.Error("Scheduled scan failed: %v", err)
		}
	})
	return err
}

// ScanOnce walks the media directories and runs the pipeline over every
// candidate. Concurrent calls collapse into one scan; late callers share the
// first caller's result.
func (w *Watcher) ScanOnce(ctx context.Context) (pipeline.Snapshot, error) {
	result, err, _ := w.group.Do("scan", func() (any, error) {
		return w.scan(ctx)
	})
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	return result.(pipeline.Snapshot), nil
}

func (w *Watcher) scan(ctx context.Context) (pipeline.Snapshot, error) {
	if len(w.cfg.Watch.MediaDirs) == 0 {
		return pipeline.Snapshot{}, fmt.Errorf("no media directories configured")
	}

	var queue []string
	seen := make(map[string]bool)
	for _, dir := range w.cfg.Watch.MediaDirs {
		found, err := w.collect(ctx, dir)
		if err != nil {
			log.Error("Failed to scan dir %s: %v", dir, err)
			continue
		}
		// Overlapping directories must not enqueue a file twice.
		for _, path := range found {
			if !seen[path] {
				seen[path] = true
				queue = append(queue, path)
			}
		}
	}

	if len(queue) == 0 {
		log.Info("Library scan found nothing to translate")
		return pipeline.Snapshot{}, nil
	}

	log.Info("Library scan queued %d file(s)", len(queue))
	return w.runner.Run(ctx, queue, w.cfg.PipelineOptions())
}

// collect returns the videos under one directory worth processing, in
// lexical order.
func (w *Watcher) collect(ctx context.Context, dir string) ([]string, error) {
	videos, err := FindVideos(dir)
	if err != nil {
		return nil, err
	}
	found := make([]string, 0, len(videos))
	for _, path := range videos {
		if w.shouldProcess(ctx, path) {
			found = append(found, path)
		}
	}
	return found, nil
}

// FindVideos walks one directory tree and returns every video file in
// lexical order. Hidden directories hold backup artifacts and the like, so
// they are skipped.
func FindVideos(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory %s does not exist", dir)
	}

	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isVideoFile(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

func (w *Watcher) shouldProcess(ctx context.Context, path string) bool {
	target := w.cfg.Translate.TargetLanguage

	entry, ok, err := w.history.GetProcessed(ctx, path, lang.Normalize(target))
	if err != nil {
		log.Warn("Failed to check history for %s: %v", path, err)
	} else if ok && entry.Status == persistence.ProcessedStatusDone {
		return false
	}

	info, err := w.toolchain.Probe(ctx, path)
	if err != nil {
		log.Warn("Failed to probe %s, skipping: %v", path, err)
		return false
	}
	if len(info.Tracks) == 0 {
		return false
	}
	if info.HasLanguage(target) {
		log.Info("Target subtitle already exists in media file %s", path)
		return false
	}
	return true
}

func isVideoFile(name string) bool {
	return slices.Contains(videoExts, strings.ToLower(filepath.Ext(name)))
}
