// Package main provides the gymbot CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Leanba/chatbot-gym-gemini/cli"
	"github.com/Leanba/chatbot-gym-gemini/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gymbot",
		Short: "AI gym assistant bot",
		Long: `A Telegram bot that relays gym and training questions to an LLM,
keeps a small per-user conversation history, and answers with short
coaching-style replies.

Gateways available:
- serve: long-poll the Telegram Bot API for updates
- webhook: receive updates over HTTP
- chat: local console session, no Telegram round-trip`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(chatCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runGateway assembles the application and hands it to the given gateway
// runner, shutting down cleanly on SIGINT/SIGTERM.
func runGateway(run func(ctx context.Context, app *cli.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}

		logger, err := newLogger(settings)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer logger.Sync()
		sugar := logger.Sugar()

		app, err := cli.NewApp(settings, sugar)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, app)
	}
}

func newLogger(settings *config.Settings) (*zap.Logger, error) {
	if settings.DebugMode || settings.LogEncoder == "console" {
		cfg := zap.NewDevelopmentConfig()
		if !settings.DebugMode {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		return cfg.Build()
	}
	return zap.NewProduction()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot with the long-poll gateway",
		RunE:  runGateway(cli.RunServe),
	}
}

func webhookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "webhook",
		Short: "Run the bot with the HTTP webhook gateway",
		RunE:  runGateway(cli.RunWebhook),
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant on the local console",
		RunE:  runGateway(cli.RunChat),
	}
}
