// Package llm defines the provider-neutral contract between the generation
// pipeline and the model backends. The pipeline depends only on this package;
// concrete providers live under pkg/client.
package llm

import (
	"context"
	"fmt"
)

// Role identifies the author of a chat turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn sent to or received from a model
type Message struct {
	Role    Role
	Content string
}

// SystemMessage builds a system-role message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// LLM is the minimal chat interface the generation pipeline requires.
// One Chat call consumes one unit of external API quota.
type LLM interface {
	// Chat sends the conversation to the model and returns the response text
	Chat(ctx context.Context, messages []Message) (string, error)

	// ModelID returns the resolved model identifier for manifests and logs
	ModelID() string
}

// ProviderError wraps a failed external model call. Authentication failures
// are fatal for the run; everything else is retryable within the attempt
// budget.
type ProviderError struct {
	Backend        string
	Authentication bool
	Err            error
}

func (e *ProviderError) Error() string {
	if e.Authentication {
		return fmt.Sprintf("%s authentication failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
