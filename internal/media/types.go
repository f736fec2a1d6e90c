package media

import (
	"context"
	"path/filepath"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/lang"
)

// SubtitleTrack is an immutable snapshot of one subtitle stream, taken at
// probe time. Any embed or remove operation on the file makes the snapshot
// stale; re-probe before trusting indices again.
type SubtitleTrack struct {
	Index       int    `json:"index"`        // position among subtitle streams
	StreamIndex int    `json:"stream_index"` // index within the container
	Codec       string `json:"codec"`
	Language    string `json:"language,omitempty"`
	Title       string `json:"title,omitempty"`
	Default     bool   `json:"default"`
	Forced      bool   `json:"forced"`
}

// VideoInfo is the probe result for one video file.
type VideoInfo struct {
	Path     string          `json:"path"`
	FileName string          `json:"filename"`
	Duration float64         `json:"duration,omitempty"` // seconds
	Tracks   []SubtitleTrack `json:"subtitle_tracks"`
}

// HasLanguage reports whether any track's language tag resolves to the same
// media code as the given tag.
func (v *VideoInfo) HasLanguage(tag string) bool {
	for _, track := range v.Tracks {
		if track.Language != "" && lang.Same(track.Language, tag) {
			return true
		}
	}
	return false
}

// Track returns the track at the given subtitle index.
func (v *VideoInfo) Track(index int) (SubtitleTrack, bool) {
	for _, track := range v.Tracks {
		if track.Index == index {
			return track, true
		}
	}
	return SubtitleTrack{}, false
}

// Toolchain is the external media capability the pipeline sequences. Probe
// is safe to call repeatedly; Extract, Embed and RemoveTrack mutate the
// video or produce new files and are not idempotent.
type Toolchain interface {
	Probe(ctx context.Context, videoPath string) (*VideoInfo, error)
	Extract(ctx context.Context, videoPath string, trackIndex int, format, outputPath string) error
	Embed(ctx context.Context, videoPath, subtitlePath, langCode, title string, setDefault bool) error
	RemoveTrack(ctx context.Context, videoPath string, trackIndex int) error
}

// CodecFormat maps a subtitle codec tag to the extraction format used for
// artifacts of that track.
func CodecFormat(codec string) string {
	switch codec {
	case "ass", "ssa":
		return "ass"
	case "webvtt":
		return "vtt"
	default:
		return "srt"
	}
}

// formatCodec maps an artifact format back to the ffmpeg subtitle codec.
func formatCodec(format string) string {
	switch format {
	case "ass", "ssa":
		return "ass"
	case "srt", "subrip":
		return "srt"
	case "vtt", "webvtt":
		return "webvtt"
	default:
		return "copy"
	}
}

func subtitleFormatOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return ext[1:]
}
