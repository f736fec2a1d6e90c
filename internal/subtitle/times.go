package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	srtTimeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})`)
	assTimeRe = regexp.MustCompile(`(\d+):(\d{2}):(\d{2})\.(\d{2})`)
	vttTimeRe = regexp.MustCompile(`(?:(\d+):)?(\d{2}):(\d{2})\.(\d{3})`)
)

func duration(h, m, s int, frac time.Duration) time.Duration {
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		frac
}

// parseSRTTimeRange parses "00:02:16,612 --> 00:02:19,376".
func parseSRTTimeRange(line string) (time.Duration, time.Duration, error) {
	matches := srtTimeRe.FindAllStringSubmatch(line, 2)
	if len(matches) != 2 {
		return 0, 0, fmt.Errorf("invalid SRT time format: %s", line)
	}
	return srtStamp(matches[0]), srtStamp(matches[1]), nil
}

func srtStamp(m []string) time.Duration {
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	return duration(h, mm, s, time.Duration(ms)*time.Millisecond)
}

func formatSRTTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// parseASSTime parses "0:02:16.61" (centisecond resolution).
func parseASSTime(stamp string) (time.Duration, error) {
	m := assTimeRe.FindStringSubmatch(stamp)
	if m == nil {
		return 0, fmt.Errorf("invalid ASS time format: %s", stamp)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	cs, _ := strconv.Atoi(m[4])
	return duration(h, mm, s, time.Duration(cs)*10*time.Millisecond), nil
}

func formatASSTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	cs := (int(d.Milliseconds()) % 1000) / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// parseVTTTime parses "00:02:16.612" with optional hours.
func parseVTTTime(stamp string) (time.Duration, error) {
	m := vttTimeRe.FindStringSubmatch(stamp)
	if m == nil {
		return 0, fmt.Errorf("invalid VTT time format: %s", stamp)
	}
	h := 0
	if m[1] != "" {
		h, _ = strconv.Atoi(m[1])
	}
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	return duration(h, mm, s, time.Duration(ms)*time.Millisecond), nil
}

func formatVTTTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
