// Application assembly for CLI commands.
//
// Information Hiding:
// - Backend selection (storage, provider) hidden behind App
// - Gateway wiring hidden; commands only pick which gateway to run

package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Leanba/chatbot-gym-gemini/bot"
	"github.com/Leanba/chatbot-gym-gemini/config"
	"github.com/Leanba/chatbot-gym-gemini/llm"
	"github.com/Leanba/chatbot-gym-gemini/storage"
	"github.com/Leanba/chatbot-gym-gemini/telegram"
)

// App bundles the assembled collaborators for one process run.
type App struct {
	Settings  *config.Settings
	Logger    *zap.SugaredLogger
	Store     storage.Store
	Telegram  *telegram.Client
	Completer *llm.Client
	Bot       *bot.Bot
}

// NewApp assembles the storage backend, completion client, platform client
// and router from validated settings.
func NewApp(settings *config.Settings, logger *zap.SugaredLogger) (*App, error) {
	store, err := newStore(settings, logger)
	if err != nil {
		return nil, err
	}

	completer, err := newCompleter(settings)
	if err != nil {
		store.Close()
		return nil, err
	}

	tg := telegram.NewClient(nil, settings.Telegram.BaseURL, settings.Telegram.Token)
	return &App{
		Settings:  settings,
		Logger:    logger,
		Store:     store,
		Telegram:  tg,
		Completer: completer,
		Bot:       bot.New(store, completer, tg, logger),
	}, nil
}

// Close persists and releases the storage backend.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Save(context.Background())
		if err := a.Store.Close(); err != nil {
			a.Logger.Warnw("Closing store failed", "error", err)
		}
	}
}

func newStore(settings *config.Settings, logger *zap.SugaredLogger) (storage.Store, error) {
	switch settings.Storage.Backend {
	case "sqlite":
		store, err := storage.OpenSqlite(settings.Storage.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	default:
		return storage.NewFileStore(settings.Storage.HistoryFile, logger), nil
	}
}

func newCompleter(settings *config.Settings) (*llm.Client, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(providerType, settings.LLM.APIKey, llm.GenerationConfig{
		Model:           settings.LLM.Model,
		Temperature:     float32(settings.LLM.Temperature),
		TopP:            float32(settings.LLM.TopP),
		TopK:            int32(settings.LLM.TopK),
		MaxOutputTokens: int32(settings.LLM.MaxOutputTokens),
	})
	if err != nil {
		return nil, err
	}
	return llm.NewClient(provider, settings.LLM.RequestTimeout), nil
}
