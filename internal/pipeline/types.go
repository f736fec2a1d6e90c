package pipeline

import "time"

// Stage is a per-file state in the pipeline's state machine.
type Stage string

const (
	StagePending     Stage = "pending"
	StageExtracting  Stage = "extracting"
	StageParsing     Stage = "parsing"
	StageTranslating Stage = "translating"
	StageSaving      Stage = "saving"
	StageEmbedding   Stage = "embedding"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// stageTransitions declares the legal moves. Failed is reachable from every
// non-terminal state; Done only through Saving or Embedding.
var stageTransitions = map[Stage][]Stage{
	StagePending:     {StageExtracting, StageFailed},
	StageExtracting:  {StageParsing, StageFailed},
	StageParsing:     {StageTranslating, StageFailed},
	StageTranslating: {StageSaving, StageFailed},
	StageSaving:      {StageEmbedding, StageDone, StageFailed},
	StageEmbedding:   {StageDone, StageFailed},
}

func canTransition(from, to Stage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage ends a file's processing.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Stage weights within one file. Translation dominates wall-clock time but
// is deliberately not weighted proportionally; the bar should move during
// the cheap stages too.
const (
	weightExtract   = 0.15
	weightParse     = 0.10
	weightTranslate = 0.50
	weightSave      = 0.10
	weightEmbed     = 0.15
)

// FileState is the per-file view published in snapshots.
type FileState struct {
	Path       string
	Stage      Stage
	TrackIndex int
	OutputPath string
	FailReason string
	FailKind   Kind
}

// Snapshot is an immutable view of a run, published after every stage
// change. Percent is monotonic within a run.
type Snapshot struct {
	Files    []FileState
	Cursor   int
	Percent  float64
	Status   string
	Terminal bool
}

// Sink receives run snapshots. Implementations must not retain or mutate
// the snapshot's slices; every publish carries fresh copies.
type Sink interface {
	Publish(Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Snapshot)

func (f SinkFunc) Publish(s Snapshot) { f(s) }

// CompletionMessage is the fixed terminal status; it does not vary with the
// number of failed files.
const CompletionMessage = "Translation run complete"

// Options is the per-run configuration, constructed once at run start and
// never mutated during the run.
type Options struct {
	SourceLang   string
	TargetLang   string
	Style        string
	OutputFormat string // "" keeps the source document's format
	TrackIndex   int    // -1 selects automatically
	BatchSize    int
	ContextLines int
	RequestDelay time.Duration
	EmbedEnabled bool
	SetDefault   bool
}
