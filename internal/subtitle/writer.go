package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultWriter reconstructs a subtitle file from a document.
type DefaultWriter struct{}

// NewWriter creates a new subtitle file writer
func NewWriter() Writer {
	return &DefaultWriter{}
}

func (w *DefaultWriter) Write(path string, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("subtitle document is empty")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	switch doc.Format {
	case FormatSRT:
		writeSRT(writer, doc)
	case FormatASS:
		if err := writeASS(writer, doc); err != nil {
			return err
		}
	case FormatVTT:
		writeVTT(writer, doc)
	default:
		return fmt.Errorf("unsupported subtitle format: %s", doc.Format)
	}

	return nil
}

func writeSRT(w *bufio.Writer, doc *Document) {
	for i, line := range doc.Lines {
		// SRT numbering restarts at 1; the stable Index stays internal.
		fmt.Fprintf(w, "%d\n", i+1)
		fmt.Fprintf(w, "%s --> %s\n", formatSRTTime(line.StartTime), formatSRTTime(line.EndTime))
		fmt.Fprintf(w, "%s\n\n", line.Text)
	}
}

var leadingASSTagsRe = regexp.MustCompile(`^(\{[^}]*\})+`)

func writeASS(w *bufio.Writer, doc *Document) error {
	if doc.RawHeader == "" {
		return fmt.Errorf("cannot reconstruct ASS without the original header")
	}

	w.WriteString(doc.RawHeader)
	w.WriteString("\n")

	for _, line := range doc.Lines {
		style := line.Style
		if style == "" {
			style = "Default"
		}
		text := strings.ReplaceAll(line.Text, "\n", `\N`)
		// Re-apply leading override tags captured at parse time.
		if tags := leadingASSTagsRe.FindString(line.RawText); tags != "" {
			text = tags + text
		}
		fmt.Fprintf(w, "Dialogue: 0,%s,%s,%s,%s,0,0,0,,%s\n",
			formatASSTime(line.StartTime),
			formatASSTime(line.EndTime),
			style,
			line.Name,
			text)
	}
	return nil
}

func writeVTT(w *bufio.Writer, doc *Document) {
	w.WriteString("WEBVTT\n\n")
	for _, line := range doc.Lines {
		fmt.Fprintf(w, "%s --> %s\n", formatVTTTime(line.StartTime), formatVTTTime(line.EndTime))
		fmt.Fprintf(w, "%s\n\n", line.Text)
	}
}
