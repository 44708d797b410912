// Package llm is the client layer for the generative text collaborator.
// The augmented question generator and the answer judge both talk to a
// Provider; everything above this package deals in structured JSON and
// never sees provider-specific SDK types.
package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for generative text interaction.
type Provider interface {
	// Generate sends a prompt and returns a structured response. When the
	// request carries a Schema, the provider uses its native structured
	// output mechanism and the response Content is the validated JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured with.
	ModelID() string
}

// Request describes what to send to the collaborator.
type Request struct {
	// System sets the collaborator's role and constraints.
	System string

	// Messages is the conversation. Question generation and judging are
	// both single-turn, so this usually holds one user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to. When nil the
	// response Content is the raw text wrapped as a JSON string.
	Schema *Schema

	// MaxTokens is the response token budget.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0. Zero means deterministic.
	Temperature float64
}

// Message is a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the collaborator.
type Schema struct {
	// Name identifies this schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case, e.g. "question-batch".
	Name string

	// Description guides generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the collaborator's output.
type Response struct {
	// Content is the generated output, validated JSON when a Schema was
	// requested.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to: "end", "max_tokens", "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
