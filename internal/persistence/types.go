package persistence

import "time"

// BackupRecord describes one subtitle track extracted to a backup artifact
// before a destructive operation on its video. The artifact file is
// immutable; restoring re-embeds it at the recorded index.
type BackupRecord struct {
	ID           string    `json:"id"`
	VideoPath    string    `json:"video_path"`
	TrackIndex   int       `json:"track_index"`
	Language     string    `json:"language,omitempty"`
	Title        string    `json:"title,omitempty"`
	Codec        string    `json:"codec"`
	Format       string    `json:"format"`
	ArtifactPath string    `json:"artifact_path"`
	Default      bool      `json:"default"`
	CreatedAt    time.Time `json:"created_at"`
}

// Processing outcomes recorded per video/target-language pair.
const (
	ProcessedStatusDone   = "done"
	ProcessedStatusFailed = "failed"
)

// ProcessedFile is the history row the watcher consults to skip videos that
// already went through the pipeline for a target language.
type ProcessedFile struct {
	VideoPath   string    `json:"video_path"`
	TargetLang  string    `json:"target_lang"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
