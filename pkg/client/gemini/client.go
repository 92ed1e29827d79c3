package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/traingen/go-traingen/pkg/llm"
)

const defaultMaxTokens = 8192

// GeminiClient handles scenario generation calls against Gemini models.
// Implements llm.LLM.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewGeminiClient creates a new Gemini client with the specified model and
// sampling temperature
func NewGeminiClient(ctx context.Context, model string, maxTokens int, temperature float64) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, &llm.ProviderError{
			Backend:        "gemini",
			Authentication: true,
			Err:            fmt.Errorf("GEMINI_API_KEY environment variable not set"),
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{Backend: "gemini", Err: err}
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// ModelID implements llm.LLM
func (c *GeminiClient) ModelID() string { return c.model }

// Chat sends a conversation to the model and returns the response text
func (c *GeminiClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	geminiContents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			// The last system message wins as the system instruction
			systemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case llm.RoleUser:
			geminiContents = append(geminiContents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case llm.RoleAssistant:
			geminiContents = append(geminiContents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}

	temperature := float32(c.temperature)
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
		Temperature:     &temperature,
	}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents, config)
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Candidates) == 0 {
		return "", &llm.ProviderError{Backend: "gemini", Err: fmt.Errorf("no candidates in response")}
	}

	responseText := resp.Text()
	if responseText == "" {
		return "", &llm.ProviderError{Backend: "gemini", Err: fmt.Errorf("empty response")}
	}

	return responseText, nil
}

func classifyError(err error) error {
	lower := strings.ToLower(err.Error())
	auth := strings.Contains(lower, "401") || strings.Contains(lower, "api key not valid") ||
		strings.Contains(lower, "permission_denied")
	return &llm.ProviderError{Backend: "gemini", Authentication: auth, Err: err}
}
