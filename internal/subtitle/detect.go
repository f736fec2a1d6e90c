package subtitle

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// detectLanguage picks the dominant language across all lines. Used when the
// source track carried no language tag.
func detectLanguage(lines []Line) language.Tag {
	if len(lines) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, line := range lines {
		iso := whatlanggo.DetectLang(line.Text).Iso6391()
		langMap[iso]++
	}

	var topLang string
	var topCount int
	for iso, count := range langMap {
		if count > topCount {
			topLang = iso
			topCount = count
		}
	}

	return language.All.Make(topLang)
}
