package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildOutputPath(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	got := BuildOutputPath("/media/show/ep01.mkv", "pt-BR", 2, "srt", ts)
	require.Equal(t, "/media/show/ep01_pt-br_20260314_150926_track2.srt", got)
}

func TestBuildOutputPath_NeverSourcePath(t *testing.T) {
	ts := time.Now()
	src := "/media/show/ep01.mkv"
	require.NotEqual(t, src, BuildOutputPath(src, "en", 0, "mkv", ts))
}

func TestBuildOutputPath_DistinctTimestampsDoNotCollide(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	a := BuildOutputPath("/media/show/ep01.mkv", "en", 0, "srt", base)
	b := BuildOutputPath("/media/show/ep01.mkv", "en", 0, "srt", base.Add(time.Second))
	require.NotEqual(t, a, b)
}

func TestBuildOutputPath_SanitizesLangToken(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	got := BuildOutputPath("/media/ep.mkv", "??", 1, ".ASS", ts)
	require.Equal(t, "/media/ep_und_20260314_150926_track1.ass", got)
}

func TestTranslatedTitle(t *testing.T) {
	require.Equal(t, "Translated (pt-BR)", TranslatedTitle("pt-BR"))
	require.Equal(t, "Translated", TranslatedTitle(""))

	require.True(t, IsTranslatedTitle("Translated (pt-BR)"))
	require.True(t, IsTranslatedTitle("Translated"))
	require.True(t, IsTranslatedTitle("  Translated (ja)  "))
	require.False(t, IsTranslatedTitle("Full Subtitles"))
	require.False(t, IsTranslatedTitle(""))

	// Titles that merely start with the reserved word belong to users,
	// never to this pipeline.
	require.False(t, IsTranslatedTitle("Translated by XYZ fansubs"))
	require.False(t, IsTranslatedTitle("Translated (pt-BR) v2"))
	require.False(t, IsTranslatedTitle("Translations"))
}
