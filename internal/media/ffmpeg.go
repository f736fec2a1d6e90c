package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/subtitle-track-pipeline/pkg/file"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

// FFmpegToolchain drives ffprobe/ffmpeg (and optionally mkvmerge) through
// os/exec. Mutating operations write to a temp output next to the source and
// rename over it on success, so a failed run never leaves a half-written
// video in place of the original.
type FFmpegToolchain struct {
	ffmpegCmd      string
	ffprobeCmd     string
	mkvmergeCmd    string
	preferMkvmerge bool

	probeGroup singleflight.Group
}

type Option func(*FFmpegToolchain)

func WithCommands(ffmpeg, ffprobe, mkvmerge string) Option {
	return func(t *FFmpegToolchain) {
		if ffmpeg != "" {
			t.ffmpegCmd = ffmpeg
		}
		if ffprobe != "" {
			t.ffprobeCmd = ffprobe
		}
		if mkvmerge != "" {
			t.mkvmergeCmd = mkvmerge
		}
	}
}

func WithMkvmergePreferred(prefer bool) Option {
	return func(t *FFmpegToolchain) {
		t.preferMkvmerge = prefer
	}
}

func NewFFmpegToolchain(opts ...Option) *FFmpegToolchain {
	t := &FFmpegToolchain{
		ffmpegCmd:      "ffmpeg",
		ffprobeCmd:     "ffprobe",
		mkvmergeCmd:    "mkvmerge",
		preferMkvmerge: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Verify checks that ffmpeg and ffprobe are reachable.
func (t *FFmpegToolchain) Verify(ctx context.Context) error {
	for _, cmd := range []string{t.ffmpegCmd, t.ffprobeCmd} {
		if err := exec.CommandContext(ctx, cmd, "-version").Run(); err != nil {
			return fmt.Errorf("%s not available: %w", cmd, err)
		}
	}
	return nil
}

type probeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Tags      struct {
		Language string `json:"language"`
		Title    string `json:"title"`
	} `json:"tags"`
	Disposition struct {
		Default int `json:"default"`
		Forced  int `json:"forced"`
	} `json:"disposition"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the container's subtitle streams. Concurrent probes of the
// same path collapse into one ffprobe invocation; results are never cached
// across calls because any mutation invalidates them.
func (t *FFmpegToolchain) Probe(ctx context.Context, videoPath string) (*VideoInfo, error) {
	v, err, _ := t.probeGroup.Do(videoPath, func() (any, error) {
		return t.probe(ctx, videoPath)
	})
	if err != nil {
		return nil, err
	}
	return v.(*VideoInfo), nil
}

func (t *FFmpegToolchain) probe(ctx context.Context, videoPath string) (*VideoInfo, error) {
	cmdPath, err := exec.LookPath(t.ffprobeCmd)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, cmdPath, probeArgs(videoPath)...)
	output, err := cmd.Output()
	if err != nil {
		log.Error("Failed to run ffprobe on %s: %v", videoPath, err)
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		log.Error("Failed to parse ffprobe output: %v", err)
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return buildVideoInfo(videoPath, result), nil
}

func buildVideoInfo(videoPath string, result probeResult) *VideoInfo {
	info := &VideoInfo{
		Path:     videoPath,
		FileName: filepath.Base(videoPath),
	}
	if result.Format.Duration != "" {
		if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	subIndex := 0
	for _, stream := range result.Streams {
		if stream.CodecType != "subtitle" {
			continue
		}
		info.Tracks = append(info.Tracks, SubtitleTrack{
			Index:       subIndex,
			StreamIndex: stream.Index,
			Codec:       stream.CodecName,
			Language:    stream.Tags.Language,
			Title:       stream.Tags.Title,
			Default:     stream.Disposition.Default == 1,
			Forced:      stream.Disposition.Forced == 1,
		})
		subIndex++
	}
	return info
}

func probeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}

// Extract writes one subtitle track to outputPath in the given format.
func (t *FFmpegToolchain) Extract(ctx context.Context, videoPath string, trackIndex int, format, outputPath string) error {
	cmdPath, err := exec.LookPath(t.ffmpegCmd)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdPath, extractArgs(videoPath, trackIndex, format, outputPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract failed: %w: %s", err, tail(out))
	}

	stat, err := os.Stat(outputPath)
	if err != nil || stat.Size() == 0 {
		return fmt.Errorf("extracted subtitle file is empty or missing: %s", outputPath)
	}
	return nil
}

func extractArgs(videoPath string, trackIndex int, format, outputPath string) []string {
	return []string{
		"-i", videoPath,
		"-map", fmt.Sprintf("0:s:%d", trackIndex),
		"-c:s", formatCodec(format),
		"-y",
		outputPath,
	}
}

// Embed muxes a subtitle file into the video as a new track with the given
// language and title, optionally flagging it default. mkvmerge is used when
// preferred and present; ffmpeg otherwise.
func (t *FFmpegToolchain) Embed(ctx context.Context, videoPath, subtitlePath, langCode, title string, setDefault bool) error {
	tempOutput := mutationTempPath(videoPath, "_with_subs")
	defer os.Remove(tempOutput)

	useMkvmerge := t.preferMkvmerge
	mkvmergePath, err := exec.LookPath(t.mkvmergeCmd)
	if useMkvmerge && err != nil {
		log.Warn("mkvmerge not available, falling back to ffmpeg for embedding")
		useMkvmerge = false
	}

	if useMkvmerge {
		args := mkvmergeEmbedArgs(tempOutput, videoPath, subtitlePath, langCode, title, setDefault)
		cmd := exec.CommandContext(ctx, mkvmergePath, args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("mkvmerge embed failed: %w: %s", err, tail(out))
		}
		return os.Rename(tempOutput, videoPath)
	}

	// ffmpeg needs the new track's subtitle-stream index for metadata args.
	info, err := t.Probe(ctx, videoPath)
	if err != nil {
		return err
	}

	cmdPath, err := exec.LookPath(t.ffmpegCmd)
	if err != nil {
		return err
	}
	args := ffmpegEmbedArgs(tempOutput, videoPath, subtitlePath, langCode, title, setDefault, len(info.Tracks))
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg embed failed: %w: %s", err, tail(out))
	}
	return os.Rename(tempOutput, videoPath)
}

func mkvmergeEmbedArgs(output, videoPath, subtitlePath, langCode, title string, setDefault bool) []string {
	defaultFlag := "0:0"
	if setDefault {
		defaultFlag = "0:1"
	}
	return []string{
		"-o", output,
		videoPath,
		"--language", "0:" + langCode,
		"--track-name", "0:" + title,
		"--default-track", defaultFlag,
		subtitlePath,
	}
}

func ffmpegEmbedArgs(output, videoPath, subtitlePath, langCode, title string, setDefault bool, newTrackIndex int) []string {
	args := []string{
		"-i", videoPath,
		"-i", subtitlePath,
		"-map", "0",
		"-map", "1:0",
		"-c", "copy",
		fmt.Sprintf("-c:s:%d", newTrackIndex), formatCodec(subtitleFormatOf(subtitlePath)),
	}
	if langCode != "" {
		args = append(args,
			fmt.Sprintf("-metadata:s:s:%d", newTrackIndex), "language="+langCode)
	}
	args = append(args,
		fmt.Sprintf("-metadata:s:s:%d", newTrackIndex), "title="+title)
	if setDefault {
		args = append(args,
			fmt.Sprintf("-disposition:s:%d", newTrackIndex), "default")
	}
	return append(args, "-y", output)
}

// RemoveTrack drops one subtitle track, keeping every other stream. Track
// indices of later subtitle streams shift down by one afterwards.
func (t *FFmpegToolchain) RemoveTrack(ctx context.Context, videoPath string, trackIndex int) error {
	info, err := t.Probe(ctx, videoPath)
	if err != nil {
		return err
	}
	if _, ok := info.Track(trackIndex); !ok {
		return fmt.Errorf("invalid track index %d for %s", trackIndex, videoPath)
	}

	tempOutput := mutationTempPath(videoPath, "_modified")
	defer os.Remove(tempOutput)

	cmdPath, err := exec.LookPath(t.ffmpegCmd)
	if err != nil {
		return err
	}
	args := removeTrackArgs(tempOutput, videoPath, trackIndex, len(info.Tracks))
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg remove track failed: %w: %s", err, tail(out))
	}
	return os.Rename(tempOutput, videoPath)
}

func removeTrackArgs(output, videoPath string, trackIndex, trackCount int) []string {
	args := []string{
		"-i", videoPath,
		"-map", "0:v",
		"-map", "0:a",
	}
	for i := 0; i < trackCount; i++ {
		if i == trackIndex {
			continue
		}
		args = append(args, "-map", fmt.Sprintf("0:s:%d", i))
	}
	return append(args, "-c", "copy", "-y", output)
}

func mutationTempPath(videoPath, suffix string) string {
	ext := filepath.Ext(videoPath)
	return filepath.Join(filepath.Dir(videoPath), file.Stem(videoPath)+suffix+ext)
}

// tail trims command output to its last line for error messages.
func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
