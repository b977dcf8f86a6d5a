// Package ai defines the model-client contracts the engine builds on:
// embedding generation for graph construction and semantic search, and chat
// completion for context summarization. Implementations live in the openai
// and ollama subpackages.
package ai

import "context"

// ChatMessage is a single turn of a chat conversation.
//
// Role must be one of:
//   - "user"      → a user-provided message
//   - "assistant" → a message from the AI assistant
type ChatMessage struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// GenerateOptions holds configuration for generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling
// temperature. Lower values make outputs more deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics contains cumulative usage metrics from model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// EmbeddingClient turns text into vectors. Implementations that also expose
// GenerateEmbeddings(ctx, []string) get the batch fast path in callers.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// ChatClient generates text completions.
type ChatClient interface {
	GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	GenerateChat(ctx context.Context, messages []ChatMessage, opts ...GenerateOption) (string, error)
}
