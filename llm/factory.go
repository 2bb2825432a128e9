// LLM Provider Factory - maps a configured provider name onto a concrete
// Provider implementation.
package llm

import (
	"fmt"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderGemini is the Google Gemini provider (relay default).
	ProviderGemini ProviderType = iota
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderGemini:
		return "gemini"
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return ModelGeminiFlashLite
	case ProviderOpenAI:
		return ModelOpenAIGPT4oMini
	case ProviderAnthropic:
		return ModelAnthropicClaudeHaiku4
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// NewProvider creates a provider of the given type with a fixed generation
// configuration. An empty gen.Model falls back to the provider default.
func NewProvider(providerType ProviderType, apiKey string, gen GenerationConfig) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is empty (set %s)", providerType, providerType.EnvVar())
	}
	if gen.Model == "" {
		gen.Model = providerType.DefaultModel()
	}

	switch providerType {
	case ProviderGemini:
		return NewGeminiProvider(apiKey, gen), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, gen), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, gen), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", providerType)
	}
}
