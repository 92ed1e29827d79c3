package anthropic

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/traingen/go-traingen/pkg/llm"
)

const defaultMaxTokens = 8192

// AnthropicClient handles scenario generation calls against Claude models.
// Implements llm.LLM.
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicClient creates a new Anthropic client with the specified model
// and sampling temperature
func NewAnthropicClient(model string, maxTokens int, temperature float64) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, &llm.ProviderError{
			Backend:        "anthropic",
			Authentication: true,
			Err:            fmt.Errorf("ANTHROPIC_API_KEY environment variable not set"),
		}
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicClient{
		client:      &client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// ModelID implements llm.LLM
func (c *AnthropicClient) ModelID() string { return c.model }

// Chat sends a conversation to Claude and returns the response text
func (c *AnthropicClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var system []anthropic.TextBlockParam
	anthropicMessages := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case llm.RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		MaxTokens:   int64(c.maxTokens),
		Messages:    anthropicMessages,
		Model:       anthropic.Model(c.model),
		System:      system,
		Temperature: anthropic.Float(c.temperature),
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(msg.Content) == 0 {
		return "", &llm.ProviderError{Backend: "anthropic", Err: fmt.Errorf("no content in response")}
	}

	var content strings.Builder
	for _, contentBlock := range msg.Content {
		if text, ok := contentBlock.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return content.String(), nil
}

// classifyError maps SDK errors onto the pipeline's provider error, flagging
// authentication failures as fatal
func classifyError(err error) error {
	lower := strings.ToLower(err.Error())
	auth := strings.Contains(lower, "401") || strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "invalid x-api-key")
	return &llm.ProviderError{Backend: "anthropic", Authentication: auth, Err: err}
}
