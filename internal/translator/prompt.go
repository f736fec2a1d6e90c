package translator

import (
	"fmt"
	"strings"
)

// Style identifiers accepted in Request.Style.
const (
	StyleNatural    = "natural"
	StyleLiteral    = "literal"
	StyleLocalized  = "localized"
	StyleFormal     = "formal"
	StyleCasual     = "casual"
	StyleHonorifics = "honorifics"
)

var styleInstructions = map[string]string{
	StyleNatural:    "Translate naturally, prioritizing how native speakers actually talk. Adapt idioms, jokes, and cultural references to feel native in the target language while preserving the original meaning and tone.",
	StyleLiteral:    "Translate as literally as possible while still being grammatically correct. Preserve the original sentence structure and word choices where feasible.",
	StyleLocalized:  "Fully localize the content. Adapt cultural references, names, jokes, and idioms to equivalents that work in the target culture. The goal is for the translation to feel like it was originally written in the target language.",
	StyleFormal:     "Use formal, polite language appropriate for professional or official contexts. Avoid slang, contractions, and casual expressions.",
	StyleCasual:     "Use casual, conversational language. Feel free to use contractions, common expressions, and a friendly tone.",
	StyleHonorifics: "Preserve Japanese honorifics (san, kun, chan, sama, sensei, senpai) and cultural terms that don't have direct equivalents. Add brief context in parentheses if needed for clarity.",
}

// buildSystemPrompt is shared by all providers. The numbered-format rules
// must match what parseNumberedResponse accepts.
func buildSystemPrompt(style, sourceLang, targetLang string) string {
	instruction, ok := styleInstructions[style]
	if !ok {
		instruction = "Translate naturally, balancing accuracy with readability."
	}

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf(
		"You are a professional subtitle translator. Translate from %s to %s.\n\n",
		sourceLang, targetLang))
	prompt.WriteString("Style: " + instruction + "\n\n")
	prompt.WriteString("CRITICAL RULES:\n")
	prompt.WriteString("1. You will receive numbered subtitle lines in the form \"1. text\"\n")
	prompt.WriteString("2. Return ONLY the translated lines in the exact same numbered format\n")
	prompt.WriteString("3. NEVER change, merge, or reorder the line numbers\n")
	prompt.WriteString("4. The number of output lines must exactly match the number of input lines\n")
	prompt.WriteString("5. Keep translations concise - subtitles need to be readable quickly\n")
	prompt.WriteString("6. Preserve " + inlineBreakPlaceholder + " markers exactly where they appear\n")
	prompt.WriteString("7. Do not add explanations or notes - only the translated text\n")
	prompt.WriteString("8. If a line contains only sound effects or music cues, translate the sound description or leave it unchanged\n")
	return prompt.String()
}

// buildUserPrompt renders the context block followed by the numbered batch.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	if block := contextBlock(req.ContextLines); block != "" {
		b.WriteString(block)
		b.WriteByte('\n')
	}
	b.WriteString("Translate the following lines:\n")
	b.WriteString(formatNumberedLines(req.Lines))
	return b.String()
}
