package subtitle

import (
	"time"

	"golang.org/x/text/language"
)

// Supported document formats.
const (
	FormatSRT = "srt"
	FormatASS = "ass"
	FormatVTT = "vtt"
)

// Line is a single dialogue line. Index is a stable identifier assigned at
// parse time; translation re-aligns translated text to original timing by
// index, so it must never be renumbered mid-pipeline.
type Line struct {
	Index     int           // stable line identifier, 0-based
	StartTime time.Duration // start time
	EndTime   time.Duration // end time
	Text      string        // displayable text, newlines as \n
	RawText   string        // text with original formatting override tags
	Style     string        // ASS style name, empty otherwise
	Name      string        // speaker/actor name, empty otherwise
}

// Document is a parsed subtitle file. Line count and order are preserved
// end-to-end through translation; RawHeader carries the format-specific
// styling preamble opaquely (ASS script info, styles and the [Events] format
// line).
type Document struct {
	Format     string
	Lines      []Line
	SourcePath string
	RawHeader  string
	Language   language.Tag
}

// Clone returns a deep copy so stages can hand out snapshots without
// aliasing the line slice.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Lines = make([]Line, len(d.Lines))
	copy(cp.Lines, d.Lines)
	return &cp
}

// Texts returns the display text of every line in order.
func (d *Document) Texts() []string {
	ret := make([]string, len(d.Lines))
	for i, line := range d.Lines {
		ret[i] = line.Text
	}
	return ret
}

// Reader is the interface for reading subtitle files
type Reader interface {
	Read() (*Document, error)
}

// Writer is the interface for writing subtitle files
type Writer interface {
	Write(path string, doc *Document) error
}
