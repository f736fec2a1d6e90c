package tracks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/media"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/persistence"
)

// fakeToolchain keeps a per-path track list in memory and mutates it the way
// the real toolchain mutates containers.
type fakeToolchain struct {
	tracks  map[string][]media.SubtitleTrack
	removed []int
}

func newFakeToolchain() *fakeToolchain {
	return &fakeToolchain{tracks: make(map[string][]media.SubtitleTrack)}
}

func (f *fakeToolchain) reindex(path string) {
	for i := range f.tracks[path] {
		f.tracks[path][i].Index = i
	}
}

func (f *fakeToolchain) Probe(_ context.Context, videoPath string) (*media.VideoInfo, error) {
	tracks, ok := f.tracks[videoPath]
	if !ok {
		return nil, fmt.Errorf("no such video: %s", videoPath)
	}
	info := &media.VideoInfo{Path: videoPath, FileName: filepath.Base(videoPath)}
	info.Tracks = append(info.Tracks, tracks...)
	return info, nil
}

func (f *fakeToolchain) Extract(_ context.Context, videoPath string, trackIndex int, format, outputPath string) error {
	tracks := f.tracks[videoPath]
	if trackIndex < 0 || trackIndex >= len(tracks) {
		return fmt.Errorf("invalid track index %d", trackIndex)
	}
	content := fmt.Sprintf("payload:%s:%d:%s", videoPath, trackIndex, format)
	return os.WriteFile(outputPath, []byte(content), 0644)
}

func (f *fakeToolchain) Embed(_ context.Context, videoPath, subtitlePath, langCode, title string, setDefault bool) error {
	ext := strings.TrimPrefix(filepath.Ext(subtitlePath), ".")
	f.tracks[videoPath] = append(f.tracks[videoPath], media.SubtitleTrack{
		Codec:    ext,
		Language: langCode,
		Title:    title,
		Default:  setDefault,
	})
	f.reindex(videoPath)
	return nil
}

func (f *fakeToolchain) RemoveTrack(_ context.Context, videoPath string, trackIndex int) error {
	tracks := f.tracks[videoPath]
	if trackIndex < 0 || trackIndex >= len(tracks) {
		return fmt.Errorf("invalid track index %d", trackIndex)
	}
	f.removed = append(f.removed, trackIndex)
	f.tracks[videoPath] = append(tracks[:trackIndex], tracks[trackIndex+1:]...)
	f.reindex(videoPath)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeToolchain, string) {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	toolchain := newFakeToolchain()
	videoPath := filepath.Join(t.TempDir(), "ep01.mkv")
	require.NoError(t, os.WriteFile(videoPath, []byte("video"), 0644))

	return NewManager(toolchain, store), toolchain, videoPath
}

func TestBackup(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "eng", Title: "English", Default: true},
		{Index: 1, Codec: "ass", Language: "jpn"},
	}

	rec, err := manager.Backup(context.Background(), videoPath, 1)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, 1, rec.TrackIndex)
	require.Equal(t, "jpn", rec.Language)
	require.Equal(t, "ass", rec.Format)

	require.Equal(t, filepath.Join(filepath.Dir(videoPath), backupDirName),
		filepath.Dir(rec.ArtifactPath))
	content, err := os.ReadFile(rec.ArtifactPath)
	require.NoError(t, err)
	require.Contains(t, string(content), ":1:ass")

	listed, err := manager.List(context.Background(), videoPath)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, rec.ID, listed[0].ID)
}

func TestBackup_InvalidIndex(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{{Index: 0, Codec: "subrip"}}

	_, err := manager.Backup(context.Background(), videoPath, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no subtitle track 5")
}

func TestRestore_RoundTrip(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "eng", Title: "English", Default: true},
	}

	rec, err := manager.Backup(context.Background(), videoPath, 0)
	require.NoError(t, err)
	original, err := os.ReadFile(rec.ArtifactPath)
	require.NoError(t, err)

	// Simulate losing the track.
	require.NoError(t, toolchain.RemoveTrack(context.Background(), videoPath, 0))

	info, err := manager.Restore(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, info.Tracks, 1)
	require.Equal(t, "eng", info.Tracks[0].Language)
	require.Equal(t, "English", info.Tracks[0].Title)
	require.True(t, info.Tracks[0].Default)

	// The artifact stays on disk, byte for byte.
	after, err := os.ReadFile(rec.ArtifactPath)
	require.NoError(t, err)
	require.Equal(t, original, after)
}

func TestRestore_RemovesOccupant(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "eng", Title: "English"},
	}

	rec, err := manager.Backup(context.Background(), videoPath, 0)
	require.NoError(t, err)

	// Another track now occupies index 0.
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "por", Title: "Translated (pt-BR)"},
	}
	toolchain.removed = nil

	info, err := manager.Restore(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, []int{0}, toolchain.removed, "occupant is removed before re-embed")
	require.Len(t, info.Tracks, 1)
	require.Equal(t, "English", info.Tracks[0].Title)

	// The occupant was backed up before its removal.
	backups, err := manager.List(context.Background(), videoPath)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	var occupantBackup *persistence.BackupRecord
	for _, b := range backups {
		if b.Title == "Translated (pt-BR)" {
			occupantBackup = b
		}
	}
	require.NotNil(t, occupantBackup, "removed occupant has a backup record")
	require.FileExists(t, occupantBackup.ArtifactPath)
}

func TestRestore_StillPresentReplacesWithoutDuplicate(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "eng", Title: "English"},
		{Index: 1, Codec: "subrip", Language: "jpn", Title: "Japanese"},
	}

	rec, err := manager.Backup(context.Background(), videoPath, 0)
	require.NoError(t, err)

	// Restoring while the track is still in the container must replace it,
	// not add a second copy.
	info, err := manager.Restore(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, info.Tracks, 2)

	english := 0
	for _, track := range info.Tracks {
		if track.Title == "English" {
			english++
		}
	}
	require.Equal(t, 1, english, "no duplicate of the restored track")

	// Embedding appends, so the restored track lands at the tail; the
	// returned probe reports where it actually is.
	require.Equal(t, "Japanese", info.Tracks[0].Title)
	require.Equal(t, "English", info.Tracks[1].Title)
	require.Equal(t, 1, info.Tracks[1].Index)

	// The replaced copy was backed up before removal.
	backups, err := manager.List(context.Background(), videoPath)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	for _, b := range backups {
		require.FileExists(t, b.ArtifactPath)
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	manager, _, _ := newTestManager(t)
	_, err := manager.Restore(context.Background(), "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestRestore_MissingArtifact(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{{Index: 0, Codec: "subrip"}}

	rec, err := manager.Backup(context.Background(), videoPath, 0)
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.ArtifactPath))

	_, err = manager.Restore(context.Background(), rec.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "artifact missing")
}

func TestDelete(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{{Index: 0, Codec: "subrip"}}

	rec, err := manager.Backup(context.Background(), videoPath, 0)
	require.NoError(t, err)

	require.NoError(t, manager.Delete(context.Background(), rec.ID))
	require.NoFileExists(t, rec.ArtifactPath)

	listed, err := manager.List(context.Background(), videoPath)
	require.NoError(t, err)
	require.Empty(t, listed)

	// Deleting again fails because the record is gone.
	require.Error(t, manager.Delete(context.Background(), rec.ID))
}

func TestReconcileBeforeEmbed(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "eng", Title: "English"},
		{Index: 1, Codec: "subrip", Language: "jpn", Title: "Japanese"},
		{Index: 2, Codec: "subrip", Language: "por", Title: "Translated (pt-BR)"},
		{Index: 3, Codec: "subrip", Language: "spa", Title: "Spanish"},
		{Index: 4, Codec: "subrip", Language: "", Title: "Translated"},
		{Index: 5, Codec: "subrip", Language: "por", Title: "Brazilian fansub"},
		{Index: 6, Codec: "subrip", Language: "eng", Title: "Translated by XYZ fansubs"},
	}

	removed, err := manager.ReconcileBeforeEmbed(context.Background(), videoPath, "pt-br", 1)
	require.NoError(t, err)

	// Indices 2 (translated title), 4 (translated title), 5 (target language)
	// go, highest first. Index 1 is the protected source track, and index 6
	// only resembles the reserved title, so it survives.
	require.Equal(t, []int{5, 4, 2}, removed)

	remaining := make([]string, 0, len(toolchain.tracks[videoPath]))
	for _, track := range toolchain.tracks[videoPath] {
		remaining = append(remaining, track.Title)
	}
	require.Equal(t, []string{"English", "Japanese", "Spanish", "Translated by XYZ fansubs"}, remaining)

	// Every removed track was backed up first.
	backups, err := manager.List(context.Background(), videoPath)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	for _, rec := range backups {
		require.FileExists(t, rec.ArtifactPath)
	}
}

func TestReconcileBeforeEmbed_ExcludesSourceWithTargetLanguage(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "por", Title: "Existing PT"},
	}

	removed, err := manager.ReconcileBeforeEmbed(context.Background(), videoPath, "pt-br", 0)
	require.NoError(t, err)
	require.Empty(t, removed)
	require.Len(t, toolchain.tracks[videoPath], 1)
}

func TestReconcileBeforeEmbed_NothingStale(t *testing.T) {
	manager, toolchain, videoPath := newTestManager(t)
	toolchain.tracks[videoPath] = []media.SubtitleTrack{
		{Index: 0, Codec: "subrip", Language: "eng", Title: "English"},
	}

	removed, err := manager.ReconcileBeforeEmbed(context.Background(), videoPath, "pt-br", -1)
	require.NoError(t, err)
	require.Empty(t, removed)
}
