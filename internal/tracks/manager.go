package tracks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/lang"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/media"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/naming"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/persistence"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

// backupDirName is created next to each video; artifacts never leave it.
const backupDirName = ".subpipe_backup"

// Store is the slice of the persistence layer the manager needs.
type Store interface {
	SaveBackup(ctx context.Context, rec *persistence.BackupRecord) error
	GetBackup(ctx context.Context, id string) (*persistence.BackupRecord, bool, error)
	ListBackups(ctx context.Context, videoPath string) ([]*persistence.BackupRecord, error)
	DeleteBackup(ctx context.Context, id string) error
}

// Manager owns the lifecycle of subtitle tracks inside video containers:
// backing them up before destructive edits, restoring them, and clearing
// stale pipeline-produced tracks before a new embed.
type Manager struct {
	toolchain media.Toolchain
	store     Store
}

func NewManager(toolchain media.Toolchain, store Store) *Manager {
	return &Manager{toolchain: toolchain, store: store}
}

// Backup extracts one track to an immutable artifact next to the video and
// records it. The video itself is not modified.
func (m *Manager) Backup(ctx context.Context, videoPath string, trackIndex int) (*persistence.BackupRecord, error) {
	info, err := m.toolchain.Probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe before backup: %w", err)
	}
	track, ok := info.Track(trackIndex)
	if !ok {
		return nil, fmt.Errorf("no subtitle track %d in %s", trackIndex, videoPath)
	}

	backupDir := filepath.Join(filepath.Dir(videoPath), backupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	format := media.CodecFormat(track.Codec)
	now := time.Now()
	artifactPath := filepath.Join(backupDir,
		naming.BackupFileName(videoPath, track.Language, trackIndex, format, now))

	if err := m.toolchain.Extract(ctx, videoPath, trackIndex, format, artifactPath); err != nil {
		return nil, fmt.Errorf("extract track %d: %w", trackIndex, err)
	}

	rec := &persistence.BackupRecord{
		ID:           uuid.NewString(),
		VideoPath:    videoPath,
		TrackIndex:   trackIndex,
		Language:     track.Language,
		Title:        track.Title,
		Codec:        track.Codec,
		Format:       format,
		ArtifactPath: artifactPath,
		Default:      track.Default,
		CreatedAt:    now.UTC(),
	}
	if err := m.store.SaveBackup(ctx, rec); err != nil {
		return nil, fmt.Errorf("record backup: %w", err)
	}

	log.Info("Backed up track %d of %s to %s", trackIndex, videoPath, artifactPath)
	return rec, nil
}

// Restore re-embeds a backed-up track into its video. Any track currently
// occupying the recorded index is backed up and then removed, so a restore
// always replaces rather than duplicates, even when the occupant is the
// backed-up track itself. Embedding appends, so the restored track may land
// at a different index than the recorded one; the returned probe reflects
// the actual placement.
func (m *Manager) Restore(ctx context.Context, backupID string) (*media.VideoInfo, error) {
	rec, ok, err := m.store.GetBackup(ctx, backupID)
	if err != nil {
		return nil, fmt.Errorf("load backup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("backup %s not found", backupID)
	}
	if _, err := os.Stat(rec.ArtifactPath); err != nil {
		return nil, fmt.Errorf("backup artifact missing: %w", err)
	}

	info, err := m.toolchain.Probe(ctx, rec.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("probe before restore: %w", err)
	}
	if occupant, ok := info.Track(rec.TrackIndex); ok {
		// Removal is destructive, so the occupant is backed up first.
		if _, err := m.Backup(ctx, rec.VideoPath, occupant.Index); err != nil {
			return nil, fmt.Errorf("backup occupant track %d: %w", occupant.Index, err)
		}
		if err := m.toolchain.RemoveTrack(ctx, rec.VideoPath, occupant.Index); err != nil {
			return nil, fmt.Errorf("remove occupant track %d: %w", occupant.Index, err)
		}
	}

	if err := m.toolchain.Embed(ctx, rec.VideoPath, rec.ArtifactPath,
		rec.Language, rec.Title, rec.Default); err != nil {
		return nil, fmt.Errorf("re-embed backup: %w", err)
	}

	fresh, err := m.toolchain.Probe(ctx, rec.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("probe after restore: %w", err)
	}
	if landed, ok := fresh.Track(rec.TrackIndex); !ok || landed.Title != rec.Title {
		log.Warn("Restored track of %s landed away from recorded index %d", rec.VideoPath, rec.TrackIndex)
	}
	log.Info("Restored track %d of %s from backup %s", rec.TrackIndex, rec.VideoPath, rec.ID)
	return fresh, nil
}

// Delete removes a backup record and its artifact. A missing artifact is not
// an error; the record still goes away.
func (m *Manager) Delete(ctx context.Context, backupID string) error {
	rec, ok, err := m.store.GetBackup(ctx, backupID)
	if err != nil {
		return fmt.Errorf("load backup: %w", err)
	}
	if !ok {
		return fmt.Errorf("backup %s not found", backupID)
	}
	if err := os.Remove(rec.ArtifactPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return m.store.DeleteBackup(ctx, backupID)
}

// List returns recorded backups, optionally filtered to one video.
func (m *Manager) List(ctx context.Context, videoPath string) ([]*persistence.BackupRecord, error) {
	return m.store.ListBackups(ctx, videoPath)
}

// ReconcileBeforeEmbed removes tracks a previous pipeline run produced for
// the same target language, so repeated runs do not pile up duplicates.
// A track matches when its title carries the reserved translated pattern or
// its language tag resolves to targetTag. excludeIndex protects the source
// track. Removals run in descending index order, with a re-probe between
// each, because every removal shifts the indices above it.
func (m *Manager) ReconcileBeforeEmbed(ctx context.Context, videoPath, targetTag string, excludeIndex int) ([]int, error) {
	info, err := m.toolchain.Probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe before reconcile: %w", err)
	}

	var stale []int
	for _, track := range info.Tracks {
		if track.Index == excludeIndex {
			continue
		}
		if naming.IsTranslatedTitle(track.Title) ||
			(track.Language != "" && lang.Same(track.Language, targetTag)) {
			stale = append(stale, track.Index)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(stale)))

	removed := make([]int, 0, len(stale))
	for i, idx := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if i > 0 {
			// Indices recorded before this removal are still valid because
			// we remove from the top down, but re-probe to be sure the
			// container still has the track where we expect it.
			fresh, err := m.toolchain.Probe(ctx, videoPath)
			if err != nil {
				return removed, fmt.Errorf("re-probe during reconcile: %w", err)
			}
			if _, ok := fresh.Track(idx); !ok {
				log.Warn("Track %d disappeared during reconcile of %s, skipping", idx, videoPath)
				continue
			}
		}
		// Removal is destructive, so the track is backed up first.
		if _, err := m.Backup(ctx, videoPath, idx); err != nil {
			return removed, fmt.Errorf("backup before removing track %d: %w", idx, err)
		}
		if err := m.toolchain.RemoveTrack(ctx, videoPath, idx); err != nil {
			return removed, fmt.Errorf("remove stale track %d: %w", idx, err)
		}
		removed = append(removed, idx)
	}

	if len(removed) > 0 {
		log.Info("Reconciled %s: removed stale tracks %v", videoPath, removed)
	}
	return removed, nil
}
