package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/traingen/go-traingen/pkg/llm"
)

// OpenAIClient handles scenario generation calls against OpenAI chat models.
// Implements llm.LLM.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIClient creates a new OpenAI client with the specified model and
// sampling temperature
func NewOpenAIClient(model string, maxTokens int, temperature float64) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, &llm.ProviderError{
			Backend:        "openai",
			Authentication: true,
			Err:            fmt.Errorf("OPENAI_API_KEY environment variable not set"),
		}
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}

	// Support custom base URL (for Azure OpenAI, etc.)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	openaiModel := getOpenAIModel(model)
	if maxTokens <= 0 {
		maxTokens = getModelCapabilities(openaiModel).MaxTokens
	}

	return &OpenAIClient{
		client:      &client,
		model:       openaiModel,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// ModelID implements llm.LLM
func (c *OpenAIClient) ModelID() string { return c.model }

// Chat sends a conversation to the model and returns the response text
func (c *OpenAIClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            openaiMessages,
		Model:               shared.ChatModel(c.model),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
		Temperature:         openai.Float(c.temperature),
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(completion.Choices) == 0 {
		return "", &llm.ProviderError{Backend: "openai", Err: fmt.Errorf("no choices in response")}
	}

	return completion.Choices[0].Message.Content, nil
}

func classifyError(err error) error {
	lower := strings.ToLower(err.Error())
	auth := strings.Contains(lower, "401") || strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "incorrect api key")
	return &llm.ProviderError{Backend: "openai", Authentication: auth, Err: err}
}
