package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DefaultReader reads a subtitle file, dispatching on its extension.
type DefaultReader struct {
	path string
}

// NewReader creates a new subtitle file reader
func NewReader(path string) Reader {
	return &DefaultReader{path: path}
}

func (r *DefaultReader) Read() (*Document, error) {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("subtitle file does not exist: %s", r.path)
	}

	content, err := readTextFile(r.path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(r.path), "."))

	var doc *Document
	switch ext {
	case "srt":
		doc, err = parseSRT(content)
	case "ass", "ssa":
		doc, err = parseASS(content)
	case "vtt", "webvtt":
		doc, err = parseVTT(content)
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	doc.SourcePath = r.path
	doc.Language = detectLanguage(doc.Lines)
	return doc, nil
}

// readTextFile loads a subtitle file as UTF-8, honoring UTF-8/UTF-16 BOMs.
func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read subtitle file: %w", err)
	}

	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		raw = raw[3:]
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, err := decoder.Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16 subtitle file: %w", err)
		}
		raw = decoded
	}

	return string(raw), nil
}

var (
	assTagRe  = regexp.MustCompile(`\{[^}]*\}`)
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)
)

// stripASSTags removes override tags and maps ASS line breaks to newlines.
func stripASSTags(text string) string {
	clean := assTagRe.ReplaceAllString(text, "")
	clean = strings.ReplaceAll(clean, `\N`, "\n")
	return strings.ReplaceAll(clean, `\n`, "\n")
}

func parseSRT(content string) (*Document, error) {
	var lines []Line

	current := Line{}
	state := "index" // possible values: "index", "time", "text"
	var textLines []string

	flush := func() {
		if len(textLines) == 0 {
			return
		}
		text := htmlTagRe.ReplaceAllString(strings.Join(textLines, "\n"), "")
		current.Index = len(lines)
		current.Text = text
		current.RawText = strings.Join(textLines, "\n")
		lines = append(lines, current)
		current = Line{}
		textLines = nil
	}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		switch state {
		case "index":
			if line == "" {
				continue
			}
			if _, err := strconv.Atoi(line); err != nil {
				continue // skip non-index lines
			}
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseSRTTimeRange(line)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			current.StartTime = start
			current.EndTime = end
			state = "text"
			textLines = nil

		case "text":
			if line == "" {
				flush()
				state = "index"
			} else {
				textLines = append(textLines, line)
			}
		}
	}

	// handle last subtitle group
	if state == "text" {
		flush()
	}

	return &Document{Format: FormatSRT, Lines: lines}, nil
}

func parseASS(content string) (*Document, error) {
	var lines []Line
	inEvents := false
	headerEnd := 0

	rawLines := strings.Split(content, "\n")
	for lineNum, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)

		if strings.HasPrefix(trimmed, "[Events]") {
			inEvents = true
			headerEnd = lineNum
			continue
		}
		if inEvents && strings.HasPrefix(trimmed, "[") {
			// new section started, stop parsing events
			break
		}

		if !inEvents || !strings.HasPrefix(trimmed, "Dialogue:") {
			continue
		}

		// Dialogue: Layer,Start,End,Style,Name,MarginL,MarginR,MarginV,Effect,Text
		parts := strings.SplitN(trimmed, ",", 10)
		if len(parts) < 10 {
			continue
		}

		start, err := parseASSTime(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		end, err := parseASSTime(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, err
		}

		rawText := parts[9]
		lines = append(lines, Line{
			Index:     len(lines),
			StartTime: start,
			EndTime:   end,
			Text:      stripASSTags(rawText),
			RawText:   rawText,
			Style:     strings.TrimSpace(parts[3]),
			Name:      strings.TrimSpace(parts[4]),
		})
	}

	// Header is everything through the [Events] section marker and its
	// Format line, preserved opaquely for reconstruction.
	headerLines := headerEnd + 2
	if headerLines > len(rawLines) {
		headerLines = len(rawLines)
	}
	header := strings.Join(rawLines[:headerLines], "\n")

	return &Document{Format: FormatASS, Lines: lines, RawHeader: header}, nil
}

func parseVTT(content string) (*Document, error) {
	var lines []Line
	var textLines []string
	var current Line
	inCue := false

	flush := func() {
		if !inCue || len(textLines) == 0 {
			return
		}
		raw := strings.Join(textLines, "\n")
		current.Index = len(lines)
		current.Text = htmlTagRe.ReplaceAllString(raw, "")
		current.RawText = raw
		lines = append(lines, current)
		current = Line{}
		textLines = nil
	}

	for _, raw := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(raw)

		if strings.HasPrefix(trimmed, "WEBVTT") || strings.HasPrefix(trimmed, "NOTE") {
			continue
		}

		if strings.Contains(trimmed, "-->") {
			flush()
			parts := strings.SplitN(trimmed, "-->", 2)
			start, err := parseVTTTime(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, err
			}
			// cue settings may follow the end stamp
			endStamp := strings.Fields(strings.TrimSpace(parts[1]))
			if len(endStamp) == 0 {
				return nil, fmt.Errorf("invalid VTT cue timing: %s", trimmed)
			}
			end, err := parseVTTTime(endStamp[0])
			if err != nil {
				return nil, err
			}
			current.StartTime = start
			current.EndTime = end
			inCue = true
			continue
		}

		if trimmed == "" {
			flush()
			inCue = false
			continue
		}

		if inCue {
			textLines = append(textLines, trimmed)
		}
	}
	flush()

	return &Document{Format: FormatVTT, Lines: lines}, nil
}
