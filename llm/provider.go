// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for completion providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific response-text extraction
package llm

import (
	"context"
)

// Provider defines the abstract interface for completion providers.
// Implementations hide provider-specific details while exposing a
// consistent interface for chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (Response, error)
}
