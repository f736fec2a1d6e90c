package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/lang"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/file"
)

// timestampLayout is coarse enough to be filesystem-legal and fine enough
// that runs seconds apart do not collide. Collisions within one second are
// accepted; last write wins.
const timestampLayout = "20060102_150405"

// translatedTitlePrefix is the reserved track-title pattern that marks a
// track as produced by this pipeline. Reconciliation removes matching tracks
// before a new embed.
const translatedTitlePrefix = "Translated"

// BuildOutputPath produces the path a translated subtitle document is saved
// to: the video path with its extension stripped, suffixed with
// _<langToken>_<timestamp>_track<trackIndex>.<format>.
func BuildOutputPath(videoPath, langTag string, trackIndex int, format string, ts time.Time) string {
	dir := filepath.Dir(videoPath)
	stem := file.Stem(videoPath)
	token := lang.SanitizeForFilename(langTag)
	format = strings.TrimPrefix(strings.ToLower(format), ".")

	name := fmt.Sprintf("%s_%s_%s_track%d.%s",
		stem, token, ts.Format(timestampLayout), trackIndex, format)
	return filepath.Join(dir, name)
}

// BackupFileName names a backup artifact for a track; same scheme as output
// paths so backups are self-describing on disk.
func BackupFileName(videoPath, langTag string, trackIndex int, format string, ts time.Time) string {
	token := lang.SanitizeForFilename(langTag)
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	return fmt.Sprintf("%s_%s_%s_track%d.%s",
		file.Stem(videoPath), token, ts.Format(timestampLayout), trackIndex, format)
}

// TranslatedTitle renders the reserved title for a newly embedded track.
func TranslatedTitle(langTag string) string {
	tag := strings.TrimSpace(langTag)
	if tag == "" {
		return translatedTitlePrefix
	}
	return fmt.Sprintf("%s (%s)", translatedTitlePrefix, tag)
}

// translatedTitleRe matches exactly the titles TranslatedTitle produces:
// "Translated" or "Translated (<tag>)". A looser prefix match would sweep up
// user tracks like "Translated by XYZ fansubs" during reconciliation.
var translatedTitleRe = regexp.MustCompile(`^Translated( \([^)]+\))?$`)

// IsTranslatedTitle reports whether a track title matches the reserved
// pattern used by TranslatedTitle.
func IsTranslatedTitle(title string) bool {
	return translatedTitleRe.MatchString(strings.TrimSpace(title))
}
