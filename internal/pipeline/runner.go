package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/lang"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/media"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/naming"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/persistence"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/subtitle"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/tracks"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/translator"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/file"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

// HistoryStore records run outcomes so the watcher can skip processed files.
type HistoryStore interface {
	RecordProcessed(ctx context.Context, entry persistence.ProcessedFile) error
}

// Runner drives one video file at a time through the pipeline's state
// machine. A Runner is reusable across runs; each Run gets fresh state.
type Runner struct {
	toolchain media.Toolchain
	provider  translator.Provider
	lifecycle *tracks.Manager
	history   HistoryStore // optional
	sink      Sink         // optional
	locks     *pathLocks
}

func NewRunner(toolchain media.Toolchain, provider translator.Provider, lifecycle *tracks.Manager, history HistoryStore, sink Sink) *Runner {
	return &Runner{
		toolchain: toolchain,
		provider:  provider,
		lifecycle: lifecycle,
		history:   history,
		sink:      sink,
		locks:     newPathLocks(),
	}
}

// runState is the mutable backing of one run; snapshots are copied out of it.
type runState struct {
	files    []FileState
	cursor   int
	status   string
	terminal bool

	// inStage is the completed fraction of the current file, in [0,1).
	inStage float64
	// floor keeps the published percentage monotonic.
	floor float64
}

func (r *runState) snapshot() Snapshot {
	files := make([]FileState, len(r.files))
	copy(files, r.files)

	terminalCount := 0.0
	for _, f := range r.files {
		if f.Stage.Terminal() {
			terminalCount++
		}
	}
	percent := (terminalCount + r.inStage) / float64(len(r.files)) * 100
	if r.terminal {
		percent = 100
	}
	if percent < r.floor {
		percent = r.floor
	}
	r.floor = percent

	return Snapshot{
		Files:    files,
		Cursor:   r.cursor,
		Percent:  percent,
		Status:   r.status,
		Terminal: r.terminal,
	}
}

// Run processes paths strictly in order. A file failure is recorded and the
// run continues; only context cancellation stops the run early. The returned
// snapshot is the terminal one.
func (r *Runner) Run(ctx context.Context, paths []string, opts Options) (Snapshot, error) {
	if len(paths) == 0 {
		return Snapshot{}, NewError(KindConfig, "no files to process")
	}

	state := &runState{
		files:  make([]FileState, len(paths)),
		status: "starting",
	}
	for i, path := range paths {
		state.files[i] = FileState{Path: path, Stage: StagePending, TrackIndex: -1}
	}
	r.publish(state)

	for i := range state.files {
		if err := ctx.Err(); err != nil {
			state.status = "cancelled"
			r.publish(state)
			return state.snapshot(), err
		}

		state.cursor = i
		state.inStage = 0
		r.processFile(ctx, state, i, opts)
		state.inStage = 0
		r.recordHistory(ctx, &state.files[i], opts)
	}

	state.status = CompletionMessage
	state.terminal = true
	snap := state.snapshot()
	r.publish(state)
	return snap, nil
}

func (r *Runner) publish(state *runState) {
	if r.sink != nil {
		r.sink.Publish(state.snapshot())
	}
}

// advance moves the current file to the next stage, enforcing the declared
// transition table.
func (r *Runner) advance(state *runState, idx int, to Stage) {
	from := state.files[idx].Stage
	if !canTransition(from, to) {
		// A transition bug is a programming error, not a file failure.
		panic(fmt.Sprintf("illegal stage transition %s -> %s", from, to))
	}
	state.files[idx].Stage = to
	state.status = fmt.Sprintf("%s: %s", to, filepath.Base(state.files[idx].Path))
	r.publish(state)
}

func (r *Runner) fail(state *runState, idx int, err error) {
	state.files[idx].Stage = StageFailed
	state.files[idx].FailReason = err.Error()
	state.files[idx].FailKind = KindOf(err)
	state.inStage = 0
	state.status = fmt.Sprintf("failed: %s", filepath.Base(state.files[idx].Path))
	log.Error("File %s failed: %v", state.files[idx].Path, err)
	r.publish(state)
}

// processFile walks one file through every stage. Partial artifacts from a
// failed file stay on disk.
func (r *Runner) processFile(ctx context.Context, state *runState, idx int, opts Options) {
	fs := &state.files[idx]
	release := r.locks.acquire(fs.Path)
	defer release()

	stageDone := func(weight float64) {
		state.inStage += weight * r.stageScale(opts)
	}

	// Extracting.
	r.advance(state, idx, StageExtracting)
	workPath, track, err := r.extract(ctx, fs.Path, opts)
	if err != nil {
		r.fail(state, idx, err)
		return
	}
	fs.TrackIndex = track.Index
	stageDone(weightExtract)

	if err := ctx.Err(); err != nil {
		r.fail(state, idx, WrapError(KindUnknown, "cancelled", err))
		return
	}

	// Parsing.
	r.advance(state, idx, StageParsing)
	doc, err := subtitle.NewReader(workPath).Read()
	if err != nil {
		r.fail(state, idx, WrapError(KindStorage, "parse extracted subtitle", err).
			WithContext("file", fs.Path).WithContext("artifact", workPath))
		return
	}
	stageDone(weightParse)

	if err := ctx.Err(); err != nil {
		r.fail(state, idx, WrapError(KindUnknown, "cancelled", err))
		return
	}

	// Translating.
	r.advance(state, idx, StageTranslating)
	translated, err := r.translate(ctx, state, doc, opts)
	if err != nil {
		r.fail(state, idx, err)
		return
	}
	// Batch callbacks already accumulated weightTranslate.

	if err := ctx.Err(); err != nil {
		r.fail(state, idx, WrapError(KindUnknown, "cancelled", err))
		return
	}

	// Saving.
	r.advance(state, idx, StageSaving)
	outputPath, err := r.save(fs.Path, track, translated, opts)
	if err != nil {
		r.fail(state, idx, err)
		return
	}
	fs.OutputPath = outputPath
	stageDone(weightSave)

	// Embedding.
	if opts.EmbedEnabled {
		if err := ctx.Err(); err != nil {
			r.fail(state, idx, WrapError(KindUnknown, "cancelled", err))
			return
		}
		r.advance(state, idx, StageEmbedding)
		if err := r.embed(ctx, fs.Path, outputPath, track.Index, opts); err != nil {
			r.fail(state, idx, err)
			return
		}
		stageDone(weightEmbed)
	}

	r.advance(state, idx, StageDone)
}

// stageScale stretches the stage weights to sum to 1 when embedding is off.
func (r *Runner) stageScale(opts Options) float64 {
	if opts.EmbedEnabled {
		return 1
	}
	return 1 / (1 - weightEmbed)
}

// extract probes the container, picks the source track, backs it up when a
// later embed will mutate the container, and extracts it to a working file.
func (r *Runner) extract(ctx context.Context, videoPath string, opts Options) (string, media.SubtitleTrack, error) {
	var none media.SubtitleTrack

	info, err := r.toolchain.Probe(ctx, videoPath)
	if err != nil {
		return "", none, WrapError(KindToolchain, "probe video", err).WithContext("file", videoPath)
	}

	track, err := pickSourceTrack(info, opts)
	if err != nil {
		return "", none, err
	}

	if opts.EmbedEnabled {
		if _, err := r.lifecycle.Backup(ctx, videoPath, track.Index); err != nil {
			return "", none, WrapError(KindStorage, "backup source track", err).
				WithContext("file", videoPath).WithContext("track", track.Index)
		}
	}

	workDir, err := os.MkdirTemp("", "subpipe-")
	if err != nil {
		return "", none, WrapError(KindStorage, "create working directory", err)
	}
	format := media.CodecFormat(track.Codec)
	workPath := filepath.Join(workDir, fmt.Sprintf("%s_track%d.%s",
		file.Stem(videoPath), track.Index, format))

	if err := r.toolchain.Extract(ctx, videoPath, track.Index, format, workPath); err != nil {
		return "", none, WrapError(KindToolchain, "extract subtitle track", err).
			WithContext("file", videoPath).WithContext("track", track.Index)
	}
	return workPath, track, nil
}

// pickSourceTrack prefers an explicit index, then a source-language match,
// then the first text-based track. Bitmap tracks need OCR and are skipped.
func pickSourceTrack(info *media.VideoInfo, opts Options) (media.SubtitleTrack, error) {
	var none media.SubtitleTrack

	if opts.TrackIndex >= 0 {
		track, ok := info.Track(opts.TrackIndex)
		if !ok {
			return none, NewError(KindToolchain, "requested track does not exist").
				WithContext("file", info.Path).WithContext("track", opts.TrackIndex)
		}
		if isBitmapCodec(track.Codec) {
			return none, NewError(KindToolchain, "requested track is bitmap-based").
				WithContext("file", info.Path).WithContext("codec", track.Codec)
		}
		return track, nil
	}

	var fallback *media.SubtitleTrack
	for i := range info.Tracks {
		track := info.Tracks[i]
		if isBitmapCodec(track.Codec) {
			continue
		}
		if opts.SourceLang != "" && track.Language != "" && lang.Same(track.Language, opts.SourceLang) {
			return track, nil
		}
		if fallback == nil {
			fallback = &info.Tracks[i]
		}
	}
	if fallback == nil {
		return none, NewError(KindToolchain, "no text subtitle track in container").
			WithContext("file", info.Path)
	}
	return *fallback, nil
}

func isBitmapCodec(codec string) bool {
	switch codec {
	case "hdmv_pgs_subtitle", "dvd_subtitle", "dvb_subtitle", "xsub":
		return true
	}
	return false
}

func (r *Runner) translate(ctx context.Context, state *runState, doc *subtitle.Document, opts Options) (*subtitle.Document, error) {
	sourceLang := opts.SourceLang
	if sourceLang == "" {
		if doc.Language.String() != "und" {
			sourceLang = doc.Language.String()
		} else {
			sourceLang = "auto"
		}
	}

	scale := r.stageScale(opts)
	base := state.inStage
	batcher := &translator.Batcher{
		Provider:     r.provider,
		BatchSize:    opts.BatchSize,
		ContextLines: opts.ContextLines,
		RequestDelay: opts.RequestDelay,
		SourceLang:   sourceLang,
		TargetLang:   opts.TargetLang,
		Style:        opts.Style,
		OnBatch: func(done, total int) {
			state.inStage = base + weightTranslate*scale*float64(done)/float64(total)
			r.publish(state)
		},
	}

	translated, err := batcher.TranslateDocument(ctx, doc)
	if err != nil {
		var mismatch *translator.CountMismatchError
		if errors.As(err, &mismatch) {
			return nil, WrapError(KindIntegrity, "translation count mismatch", err).
				WithContext("batch_start", mismatch.BatchStart).
				WithContext("batch_end", mismatch.BatchEnd)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, WrapError(KindUnknown, "cancelled", err)
		}
		return nil, WrapError(KindProvider, "translate document", err)
	}
	return translated, nil
}

func (r *Runner) save(videoPath string, track media.SubtitleTrack, doc *subtitle.Document, opts Options) (string, error) {
	format := doc.Format
	if opts.OutputFormat != "" && opts.OutputFormat != doc.Format {
		if opts.OutputFormat == subtitle.FormatASS && doc.RawHeader == "" {
			log.Warn("Cannot convert %s to ass without a style header, keeping %s", videoPath, doc.Format)
		} else {
			format = opts.OutputFormat
		}
	}

	out := doc.Clone()
	out.Format = format
	out.Language = lang.Tag(opts.TargetLang)

	outputPath := naming.BuildOutputPath(videoPath, opts.TargetLang, track.Index, format, time.Now())
	if err := subtitle.NewWriter().Write(outputPath, out); err != nil {
		return "", WrapError(KindStorage, "write translated subtitle", err).
			WithContext("file", videoPath).WithContext("output", outputPath)
	}
	return outputPath, nil
}

func (r *Runner) embed(ctx context.Context, videoPath, subtitlePath string, sourceTrackIndex int, opts Options) error {
	targetCode := lang.ToMediaCode(opts.TargetLang)

	if _, err := r.lifecycle.ReconcileBeforeEmbed(ctx, videoPath, opts.TargetLang, sourceTrackIndex); err != nil {
		return WrapError(KindToolchain, "reconcile stale tracks", err).WithContext("file", videoPath)
	}

	title := naming.TranslatedTitle(opts.TargetLang)
	if err := r.toolchain.Embed(ctx, videoPath, subtitlePath, targetCode, title, opts.SetDefault); err != nil {
		return WrapError(KindToolchain, "embed translated track", err).
			WithContext("file", videoPath).WithContext("subtitle", subtitlePath)
	}
	return nil
}

func (r *Runner) recordHistory(ctx context.Context, fs *FileState, opts Options) {
	if r.history == nil {
		return
	}
	entry := persistence.ProcessedFile{
		VideoPath:   fs.Path,
		TargetLang:  lang.Normalize(opts.TargetLang),
		ProcessedAt: time.Now().UTC(),
	}
	switch fs.Stage {
	case StageDone:
		entry.Status = persistence.ProcessedStatusDone
		entry.OutputPath = fs.OutputPath
	case StageFailed:
		entry.Status = persistence.ProcessedStatusFailed
		entry.Error = fs.FailReason
	default:
		return
	}
	if err := r.history.RecordProcessed(ctx, entry); err != nil {
		log.Warn("Failed to record history for %s: %v", fs.Path, err)
	}
}
