package openai

// ModelCapabilities describes per-model limits used when the caller does not
// override maxTokens
type ModelCapabilities struct {
	MaxTokens int
}

var modelCapabilities = map[string]ModelCapabilities{
	"gpt-4o":      {MaxTokens: 16384},
	"gpt-4o-mini": {MaxTokens: 16384},
	"gpt-5":       {MaxTokens: 32768},
	"gpt-5-mini":  {MaxTokens: 32768},
}

// getOpenAIModel maps an arbitrary model name onto a known OpenAI model,
// falling back to gpt-4o-mini
func getOpenAIModel(model string) string {
	if _, ok := modelCapabilities[model]; ok {
		return model
	}
	return "gpt-4o-mini"
}

func getModelCapabilities(model string) ModelCapabilities {
	if caps, ok := modelCapabilities[model]; ok {
		return caps
	}
	return ModelCapabilities{MaxTokens: 16384}
}
