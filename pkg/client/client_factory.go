// Package client provides the factory that maps a configured backend name
// onto a concrete llm.LLM implementation.
package client

import (
	"context"
	"fmt"

	"github.com/traingen/go-traingen/pkg/client/anthropic"
	"github.com/traingen/go-traingen/pkg/client/gemini"
	"github.com/traingen/go-traingen/pkg/client/ollama"
	"github.com/traingen/go-traingen/pkg/client/openai"
	"github.com/traingen/go-traingen/pkg/llm"
)

// NewLLMClient creates a client for the given backend. Supported backends are
// "anthropic", "openai", "gemini", and "ollama".
func NewLLMClient(ctx context.Context, backend, model string, maxTokens int, temperature float64) (llm.LLM, error) {
	switch backend {
	case "anthropic", "claude":
		return anthropic.NewAnthropicClient(model, maxTokens, temperature)
	case "openai":
		return openai.NewOpenAIClient(model, maxTokens, temperature)
	case "gemini":
		return gemini.NewGeminiClient(ctx, model, maxTokens, temperature)
	case "ollama":
		return ollama.NewOllamaClient(model, maxTokens, temperature)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s (must be 'ollama', 'anthropic', 'openai', or 'gemini')", backend)
	}
}
