package translator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatNumberedLines(t *testing.T) {
	out := formatNumberedLines([]string{"Hello.", "How are you\ndoing?"})
	require.Equal(t, "1. Hello.\n2. How are you<br>doing?", out)
}

func TestParseNumberedResponse(t *testing.T) {
	response := "1. Olá.\n2. Como vai<br>hoje?"
	got := parseNumberedResponse(response, 2)
	require.Equal(t, []string{"Olá.", "Como vai\nhoje?"}, got)
}

func TestParseNumberedResponse_IgnoresChatter(t *testing.T) {
	response := strings.Join([]string{
		"Here are the translations:",
		"",
		"1. Olá.",
		"2: Tudo bem?",
		"3) Até logo.",
	}, "\n")
	got := parseNumberedResponse(response, 3)
	require.Equal(t, []string{"Olá.", "Tudo bem?", "Até logo."}, got)
}

func TestParseNumberedResponse_JoinsContinuations(t *testing.T) {
	// Some models emit a real newline instead of the placeholder.
	response := "1. Como vai\nhoje?\n2. Bem."
	got := parseNumberedResponse(response, 2)
	require.Equal(t, []string{"Como vai\nhoje?", "Bem."}, got)
}

func TestParseNumberedResponse_ShortResult(t *testing.T) {
	got := parseNumberedResponse("1. Olá.", 3)
	require.Len(t, got, 1, "missing numbers are dropped, never padded")
}

func TestParseNumberedResponse_OutOfRangeNumbers(t *testing.T) {
	got := parseNumberedResponse("1. Olá.\n99. junk", 2)
	require.Equal(t, []string{"Olá."}, got)
}

func TestBuildUserPrompt_WithContext(t *testing.T) {
	prompt := buildUserPrompt(Request{
		Lines:        []string{"Good morning."},
		ContextLines: []string{"Olá.", "Tudo bem?"},
	})
	require.Contains(t, prompt, "> Olá.")
	require.Contains(t, prompt, "> Tudo bem?")
	require.Contains(t, prompt, "1. Good morning.")
	require.Less(t, strings.Index(prompt, "> Olá."), strings.Index(prompt, "1. Good morning."),
		"context precedes the batch")
}

func TestBuildUserPrompt_NoContext(t *testing.T) {
	prompt := buildUserPrompt(Request{Lines: []string{"Hello."}})
	require.NotContains(t, prompt, ">")
	require.Contains(t, prompt, "1. Hello.")
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt(StyleHonorifics, "Japanese", "pt-BR")
	require.Contains(t, prompt, "from Japanese to pt-BR")
	require.Contains(t, prompt, "honorifics")

	fallback := buildSystemPrompt("nonsense", "en", "es")
	require.Contains(t, fallback, "balancing accuracy with readability")
}
