// Package config provides application settings loaded from environment variables.
//
// Settings are created via Load() which handles:
// - Optional .env file loading
// - Default value application followed by environment overrides
// - Required-secret validation (the two startup secrets are fatal when absent)

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Settings holds all application configuration.
type Settings struct {
	Telegram   TelegramConfig
	LLM        LLMConfig
	Storage    StorageConfig
	Gateway    GatewayConfig
	DebugMode  bool   `env:"DEBUG_MODE"`
	LogEncoder string `env:"LOG_ENCODER"` // console|json
}

// TelegramConfig holds the chat platform credentials and transport tuning.
type TelegramConfig struct {
	Token       string        `env:"TELEGRAM_TOKEN"`
	BaseURL     string        `env:"TELEGRAM_BASE_URL"`
	PollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT"`
}

// LLMConfig holds the completion provider configuration. The sampling
// parameters are passed through to the upstream service untouched.
type LLMConfig struct {
	Provider        string        `env:"LLM_PROVIDER"`
	Model           string        `env:"LLM_MODEL"`
	APIKey          string        // resolved from the provider's own env var
	Temperature     float64       `env:"LLM_TEMPERATURE"`
	TopP            float64       `env:"LLM_TOP_P"`
	TopK            int           `env:"LLM_TOP_K"`
	MaxOutputTokens int           `env:"LLM_MAX_OUTPUT_TOKENS"`
	RequestTimeout  time.Duration `env:"LLM_REQUEST_TIMEOUT"`
}

// StorageConfig selects and tunes the history backend.
type StorageConfig struct {
	Backend     string `env:"STORAGE_BACKEND"` // file|sqlite
	HistoryFile string `env:"HISTORY_FILE"`
	SqlitePath  string `env:"SQLITE_PATH"`
}

// GatewayConfig holds the webhook listener settings.
type GatewayConfig struct {
	WebhookAddr string `env:"WEBHOOK_ADDR"`
	WebhookPath string `env:"WEBHOOK_PATH"`
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"gemini":    {"GEMINI_MODEL", "models/gemini-2.0-flash-lite-preview-02-05", "GEMINI_API_KEY"},
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-haiku-4-20250514", "ANTHROPIC_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"google": "gemini",
	"gpt":    "openai",
	"claude": "anthropic",
}

// Defaults returns settings with the established tuning for the coaching
// persona: low temperature, short outputs.
func Defaults() *Settings {
	return &Settings{
		Telegram: TelegramConfig{
			PollTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			Temperature:     0.2,
			TopP:            0.9,
			TopK:            40,
			MaxOutputTokens: 400,
			RequestTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     "file",
			HistoryFile: "histories.json",
			SqlitePath:  "histories.db",
		},
		Gateway: GatewayConfig{
			WebhookAddr: ":8080",
			WebhookPath: "/webhook",
		},
		LogEncoder: "console",
	}
}

// Load builds settings from defaults, an optional .env file and the
// environment, then validates the required secrets. A missing secret is a
// configuration error the caller should treat as fatal.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	settings := Defaults()
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	settings.LLM.Provider = normalizeProvider(settings.LLM.Provider)
	info, err := getProviderInfo(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = modelFor(info)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = os.Getenv(info.apiKeyEnv)
	}

	if err := settings.validate(info); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) validate(info providerInfo) error {
	if s.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN environment variable not set")
	}
	if s.LLM.APIKey == "" {
		return fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	switch s.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend: %q (want file or sqlite)", s.Storage.Backend)
	}
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// modelFor returns the model for a provider, checking environment first.
func modelFor(info providerInfo) string {
	if val := os.Getenv(info.modelEnv); val != "" {
		return val
	}
	return info.defaultModel
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}
	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}
