package subtitle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrite_SRT_RoundTrip(t *testing.T) {
	src := writeTemp(t, "in.srt", sampleSRT)
	doc, err := NewReader(src).Read()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.srt")
	require.NoError(t, NewWriter().Write(out, doc))

	reparsed, err := NewReader(out).Read()
	require.NoError(t, err)
	require.Len(t, reparsed.Lines, len(doc.Lines))
	for i := range doc.Lines {
		require.Equal(t, doc.Lines[i].Text, reparsed.Lines[i].Text)
		require.Equal(t, doc.Lines[i].StartTime, reparsed.Lines[i].StartTime)
		require.Equal(t, doc.Lines[i].EndTime, reparsed.Lines[i].EndTime)
	}
}

func TestWrite_ASS_PreservesHeaderAndTags(t *testing.T) {
	src := writeTemp(t, "in.ass", sampleASS)
	doc, err := NewReader(src).Read()
	require.NoError(t, err)

	// Simulate translation.
	doc.Lines[0].Text = "Olá."
	doc.Lines[1].Text = "Como vai\nHoje?"

	out := filepath.Join(t.TempDir(), "out.ass")
	require.NoError(t, NewWriter().Write(out, doc))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	content := string(raw)

	require.Contains(t, content, "[Script Info]")
	require.Contains(t, content, `{\i1}Olá.`, "leading override tags are re-applied")
	require.Contains(t, content, `Como vai\NHoje?`, "newlines become ASS line breaks")
}

func TestWrite_ASS_RequiresHeader(t *testing.T) {
	doc := &Document{Format: FormatASS, Lines: []Line{{Text: "hi"}}}
	err := NewWriter().Write(filepath.Join(t.TempDir(), "out.ass"), doc)
	require.Error(t, err)
}

func TestWrite_VTT(t *testing.T) {
	src := writeTemp(t, "in.vtt", sampleVTT)
	doc, err := NewReader(src).Read()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.vtt")
	require.NoError(t, NewWriter().Write(out, doc))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(raw), "WEBVTT")

	reparsed, err := NewReader(out).Read()
	require.NoError(t, err)
	require.Len(t, reparsed.Lines, 2)
}

func TestWrite_NilDocument(t *testing.T) {
	require.Error(t, NewWriter().Write(filepath.Join(t.TempDir(), "out.srt"), nil))
}
