package translator

// PresetModels is the static fallback catalog used when a provider's model
// listing endpoint is unreachable or empty. Local providers return a minimal
// list because their catalog depends entirely on what the user pulled.
func PresetModels(provider string) []Model {
	switch provider {
	case ProviderOpenAI:
		return []Model{
			{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
			{ID: "gpt-4o", Name: "GPT-4o"},
		}
	case ProviderOpenRouter:
		return []Model{
			{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
			{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini"},
			{ID: "anthropic/claude-3-haiku-20240307", Name: "Claude 3 Haiku"},
		}
	case ProviderGemini:
		return []Model{
			{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash Lite"},
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
		}
	case ProviderOllama:
		return []Model{
			{ID: "llama3", Name: "Llama 3"},
		}
	default:
		return nil
	}
}
