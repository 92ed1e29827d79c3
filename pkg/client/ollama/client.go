package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/ollama/ollama/api"

	"github.com/traingen/go-traingen/pkg/llm"
)

const defaultMaxTokens = 4096

// scenarioFormat is the structured output shape requested from local models.
// Smaller models drift from labelled-section prompts, so the schema-constrained
// JSON form keeps their output parseable.
type scenarioFormat struct {
	Scenario  string   `json:"scenario" jsonschema:"description=Realistic user scenario grounded in the provided knowledge,minLength=1"`
	Response  string   `json:"response" jsonschema:"description=Expert response with a decision and rationale,minLength=1"`
	Citations []string `json:"citations" jsonschema:"description=Knowledge chunk identifiers the response relies on"`
}

// OllamaClient handles scenario generation calls against a local Ollama server.
// Implements llm.LLM.
type OllamaClient struct {
	client      *api.Client
	model       string
	maxTokens   int
	temperature float64
	format      json.RawMessage
}

// NewOllamaClient creates a new Ollama client with the specified model and
// sampling temperature
func NewOllamaClient(model string, maxTokens int, temperature float64) (*OllamaClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, &llm.ProviderError{Backend: "ollama", Err: fmt.Errorf("failed to create client: %w", err)}
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OllamaClient{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		format:      scenarioOutputSchema(),
	}, nil
}

// ModelID implements llm.LLM
func (c *OllamaClient) ModelID() string { return c.model }

// Chat sends a conversation to the local model and returns the response text
func (c *OllamaClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false
	chatRequest := &api.ChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Format:   c.format,
		Options: map[string]any{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}

	var content strings.Builder
	err := c.client.Chat(ctx, chatRequest, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", &llm.ProviderError{Backend: "ollama", Err: err}
	}

	return content.String(), nil
}

// scenarioOutputSchema reflects the structured scenario shape into a JSON
// schema for the Ollama format parameter
func scenarioOutputSchema() json.RawMessage {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&scenarioFormat{})

	data, err := json.Marshal(schema)
	if err != nil {
		// Reflection of a static struct cannot fail at runtime; fall back to
		// unconstrained output rather than refusing to start
		return nil
	}
	return data
}
