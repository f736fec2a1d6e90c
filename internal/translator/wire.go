package translator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// inlineBreakPlaceholder replaces in-text newlines on the wire so one
// subtitle line stays one numbered line in the exchange.
const inlineBreakPlaceholder = "<br>"

var numberedLineRe = regexp.MustCompile(`^\s*(\d+)[.:)]\s*(.*)$`)

// formatNumberedLines renders texts as "1. text" lines, numbering from 1.
// In-text newlines become the inline break placeholder.
func formatNumberedLines(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(strings.ReplaceAll(text, "\n", inlineBreakPlaceholder))
	}
	return b.String()
}

// parseNumberedResponse extracts numbered translations from a model response.
// Lines are matched by their number, not their position, so chatter around
// the numbered block is ignored. The result holds the translations for
// numbers 1..count that were present, in order; absent numbers are dropped,
// so the caller sees a short slice rather than padded blanks.
func parseNumberedResponse(content string, count int) []string {
	byNumber := make(map[int]string, count)
	var current int

	for _, raw := range strings.Split(content, "\n") {
		if m := numberedLineRe.FindStringSubmatch(raw); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > count {
				current = 0
				continue
			}
			byNumber[n] = m[2]
			current = n
			continue
		}
		// Continuation of the previous numbered line. Providers sometimes
		// emit a real newline instead of the placeholder.
		if current > 0 && strings.TrimSpace(raw) != "" {
			byNumber[current] += inlineBreakPlaceholder + strings.TrimSpace(raw)
		}
	}

	translations := make([]string, 0, len(byNumber))
	for n := 1; n <= count; n++ {
		text, ok := byNumber[n]
		if !ok {
			continue
		}
		text = strings.ReplaceAll(text, inlineBreakPlaceholder, "\n")
		translations = append(translations, strings.TrimSpace(text))
	}
	return translations
}

// contextBlock renders previously translated lines for the prompt.
func contextBlock(contextLines []string) string {
	if len(contextLines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previously translated lines, for continuity only. Do NOT include them in your response:\n")
	for _, line := range contextLines {
		b.WriteString(fmt.Sprintf("> %s\n", strings.ReplaceAll(line, "\n", inlineBreakPlaceholder)))
	}
	return b.String()
}
