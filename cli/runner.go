// Gateway execution for CLI commands.
//
// Information Hiding:
// - Long-poll loop and offset bookkeeping hidden
// - Webhook framing hidden; the router only sees Inbound events
// - Console REPL formatting hidden

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Leanba/chatbot-gym-gemini/bot"
	"github.com/Leanba/chatbot-gym-gemini/telegram"
)

// RunServe polls the platform for updates until ctx is cancelled,
// dispatching each text message to the router on its own goroutine. Events
// from different users proceed concurrently; the router serializes per
// user.
func RunServe(ctx context.Context, app *App) error {
	me, err := app.Telegram.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot identity: %w", err)
	}
	app.Logger.Infow("Bot started", "username", me.Username, "mode", "long-poll")

	var offset int64
	for {
		updates, next, err := app.Telegram.GetUpdates(ctx, offset, app.Settings.Telegram.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				app.Logger.Infow("Shutting down")
				return nil
			}
			app.Logger.Warnw("Polling failed, backing off", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		offset = next
		for _, update := range updates {
			dispatch(ctx, app, update)
		}
	}
}

// RunWebhook serves platform updates over HTTP until ctx is cancelled.
// POST bodies are parsed and dispatched asynchronously; the handler
// acknowledges immediately so the platform does not redeliver while a
// completion call is in flight. GET answers a liveness probe.
func RunWebhook(ctx context.Context, app *App) error {
	mux := http.NewServeMux()
	mux.HandleFunc(app.Settings.Gateway.WebhookPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprintln(w, "ok")
		case http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				http.Error(w, "read failed", http.StatusBadRequest)
				return
			}
			update, err := telegram.ParseUpdate(body)
			if err != nil {
				app.Logger.Warnw("Discarding malformed update", "error", err)
				http.Error(w, "bad update", http.StatusBadRequest)
				return
			}
			dispatch(ctx, app, *update)
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	server := &http.Server{
		Addr:              app.Settings.Gateway.WebhookAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	app.Logger.Infow("Bot started", "addr", server.Addr, "mode", "webhook")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// dispatch forwards one update's text message to the router. Non-text
// updates and bot-authored messages are dropped.
func dispatch(ctx context.Context, app *App, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil || msg.From.IsBot {
		return
	}
	in := bot.Inbound{
		UserID:   msg.Chat.ID,
		Username: msg.From.Username,
		Text:     msg.Text,
	}
	go func() {
		if err := app.Bot.HandleMessage(ctx, in); err != nil {
			app.Logger.Warnw("Update handling failed", "user_id", in.UserID, "error", err)
		}
	}()
}

// consoleMessenger prints outbound messages to stdout for the local REPL.
type consoleMessenger struct{}

func (consoleMessenger) SendMessage(_ context.Context, _ int64, text string) error {
	fmt.Println(text)
	return nil
}

// RunChat starts an interactive console session against a router wired to
// stdout instead of the platform, useful for trying prompts locally.
func RunChat(ctx context.Context, app *App) error {
	const localUserID = 1
	local := bot.New(app.Store, app.Completer, consoleMessenger{}, app.Logger)

	fmt.Println("Gym assistant chat. Type a message, or 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		err := local.HandleMessage(ctx, bot.Inbound{
			UserID:   localUserID,
			Username: "console",
			Text:     input,
		})
		if err != nil {
			app.Logger.Warnw("Console message failed", "error", err)
		}
	}
}
