// Package bot routes inbound chat events to the assistant's command
// handlers and composes the completion, storage and delivery layers.
//
// Information Hiding:
// - Command classification and branch selection are internal; callers only
//   see HandleMessage
// - The completion backend and outbound channel are narrow interfaces so
//   tests can substitute fakes
// - Per-user serialization is owned here, not by the store
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leanba/chatbot-gym-gemini/internal/sanitize"
	"github.com/Leanba/chatbot-gym-gemini/llm"
	"github.com/Leanba/chatbot-gym-gemini/storage"
)

// Window sizes for history reads. The prompt window keeps roughly six
// user/assistant turns; the display window matches the history view.
const (
	PromptWindow  = 12
	DisplayWindow = 10
)

// Completer is the completion backend the router talks to.
type Completer interface {
	Complete(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error)
}

// Messenger delivers outbound text to one user's chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Inbound is one text event as seen by the router. The gateway strips
// everything else from the platform update.
type Inbound struct {
	UserID   int64
	Username string
	Text     string
}

// Stats are the router's own served-traffic counters, reported alongside
// the store's per-user message counts by /stats.
type Stats struct {
	Completions int64
	TokensUsed  int64
}

// Bot dispatches inbound events to exactly one command branch per event.
type Bot struct {
	store  storage.Store
	llm    Completer
	out    Messenger
	logger *zap.SugaredLogger

	chunkLimit int

	// Per-user locks serialize concurrent events from the same user so
	// appends keep their arrival order in the persisted history.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	statsMu     sync.Mutex
	completions int64
	tokensUsed  int64
}

// New creates a router over the given collaborators.
func New(store storage.Store, completer Completer, out Messenger, logger *zap.SugaredLogger) *Bot {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bot{
		store:      store,
		llm:        completer,
		out:        out,
		logger:     logger,
		chunkLimit: MessageChunkLimit,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// Stats returns a snapshot of the router's traffic counters.
func (b *Bot) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return Stats{Completions: b.completions, TokensUsed: b.tokensUsed}
}

func (b *Bot) recordCompletion(usage *llm.TokenUsage) {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	b.completions++
	if usage != nil {
		b.tokensUsed += int64(usage.TotalTokens)
	}
}

func (b *Bot) userLock(userID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[userID] = lock
	}
	return lock
}

// HandleMessage classifies one inbound event and executes exactly one
// branch. Events from the same user are serialized; different users
// proceed concurrently. Completion failures are reported to the user as a
// single short message and returned for the gateway's log.
func (b *Bot) HandleMessage(ctx context.Context, in Inbound) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}
	in.Text = text

	lock := b.userLock(in.UserID)
	lock.Lock()
	defer lock.Unlock()

	correlationID := uuid.NewString()
	log := b.logger.With("correlation_id", correlationID, "user_id", in.UserID)
	log.Infow("Handling message", "length", len(text))

	command, arg := splitCommand(text)
	var err error
	switch command {
	case "start":
		err = b.handleStart(ctx, in)
	case "help":
		err = b.handleHelp(ctx, in)
	case "history":
		err = b.handleHistory(ctx, in)
	case "reset":
		err = b.handleReset(ctx, in)
	case "stats":
		err = b.handleStats(ctx, in)
	case "summary":
		err = b.handleSummary(ctx, in, arg, log)
	case "sentiment":
		err = b.handleSentiment(ctx, in, arg, log)
	default:
		err = b.handleFreeform(ctx, in, text, log)
	}
	if err != nil {
		log.Warnw("Message handling failed", "command", command, "error", err)
	}
	return err
}

// splitCommand classifies the event text. Slash commands always count;
// the bare words "summary" and "sentiment" count only when followed by an
// argument, matching the established shortcut behavior. Anything else is
// freeform.
func splitCommand(text string) (command, arg string) {
	head, rest, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(rest)

	lowered := strings.ToLower(head)
	if name, ok := strings.CutPrefix(lowered, "/"); ok {
		// Strip a bot-mention suffix like /help@somebot.
		name, _, _ = strings.Cut(name, "@")
		switch name {
		case "start", "help", "history", "reset", "stats", "summary", "sentiment":
			return name, arg
		}
		return "", text
	}
	if (lowered == "summary" || lowered == "sentiment") && arg != "" {
		return lowered, arg
	}
	return "", text
}

const greetingText = "🏋️‍♂️ Hi! I'm your AI gym assistant (PRO version).\n" +
	"Useful commands:\n" +
	"/help - quick help\n" +
	"/history - see your recent interactions (local)\n" +
	"/summary <text> - quick summary of a text\n" +
	"/sentiment <text> - sentiment analysis of a text\n\n" +
	"Send me your question whenever you like 💪"

const helpText = "Quick guide:\n" +
	"• Type your question directly (e.g. 'How do I train my back at home?').\n" +
	"• /summary <text> -> Asks for a summary of the given text.\n" +
	"• /sentiment <text> -> Returns sentiment: positive/neutral/negative.\n" +
	"• /history -> Shows your local history.\n" +
	"• /reset -> Clears your local history.\n" +
	"• /stats -> Shows your usage counters.\n"

func (b *Bot) handleStart(ctx context.Context, in Inbound) error {
	if _, err := b.store.Ensure(ctx, in.UserID, in.Username); err != nil {
		return b.replyError(ctx, in, err)
	}
	return b.out.SendMessage(ctx, in.UserID, greetingText)
}

func (b *Bot) handleHelp(ctx context.Context, in Inbound) error {
	return b.out.SendMessage(ctx, in.UserID, helpText)
}

func (b *Bot) handleHistory(ctx context.Context, in Inbound) error {
	if _, err := b.store.Ensure(ctx, in.UserID, in.Username); err != nil {
		return b.replyError(ctx, in, err)
	}
	entries, err := b.store.RecentForDisplay(ctx, in.UserID, DisplayWindow)
	if err != nil {
		return b.replyError(ctx, in, err)
	}
	if len(entries) == 0 {
		return b.out.SendMessage(ctx, in.UserID, "No history yet.")
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		prefix := "A: "
		if entry.Role == storage.RoleUser {
			prefix = "U: "
		}
		lines = append(lines, prefix+entry.Text)
	}
	return b.out.SendMessage(ctx, in.UserID, "Recent interactions:\n"+strings.Join(lines, "\n"))
}

func (b *Bot) handleReset(ctx context.Context, in Inbound) error {
	if err := b.store.Reset(ctx, in.UserID); err != nil {
		return b.replyError(ctx, in, err)
	}
	b.store.Save(ctx)
	return b.out.SendMessage(ctx, in.UserID, "🧹 History cleared. Fresh start 💪")
}

func (b *Bot) handleStats(ctx context.Context, in Inbound) error {
	userStats, err := b.store.Stats(ctx, in.UserID)
	if err != nil {
		return b.replyError(ctx, in, err)
	}
	botStats := b.Stats()
	text := fmt.Sprintf(
		"📊 Your stats:\n"+
			"• Messages sent: %d\n"+
			"• Replies received: %d\n"+
			"• Total stored: %d\n"+
			"• Completions served (all users): %d\n"+
			"• Tokens used (all users): %d",
		userStats.UserMessages, userStats.AssistantMessages, userStats.TotalMessages,
		botStats.Completions, botStats.TokensUsed,
	)
	return b.out.SendMessage(ctx, in.UserID, text)
}

func (b *Bot) handleSummary(ctx context.Context, in Inbound, arg string, log *zap.SugaredLogger) error {
	if arg == "" {
		return b.out.SendMessage(ctx, in.UserID, "Use: /summary <text> — include the text so I can summarize it.")
	}
	return b.runTask(ctx, in, in.Text, "⏳ Generating summary...", composeSummary(arg), sanitize.Reformat, log)
}

func (b *Bot) handleSentiment(ctx context.Context, in Inbound, arg string, log *zap.SugaredLogger) error {
	if arg == "" {
		return b.out.SendMessage(ctx, in.UserID, "Use: /sentiment <text> — include the text so I can analyze it.")
	}
	return b.runTask(ctx, in, in.Text, "⏳ Analyzing sentiment...", composeSentiment(arg), formatSentiment, log)
}

// runTask is the shared completion path for the summary and sentiment
// commands: acknowledge, record the user's request, complete, post-process,
// record the reply and deliver it.
func (b *Bot) runTask(ctx context.Context, in Inbound, userText, progress string, messages []llm.ChatMessage, postprocess func(string) string, log *zap.SugaredLogger) error {
	if _, err := b.store.Ensure(ctx, in.UserID, in.Username); err != nil {
		return b.replyError(ctx, in, err)
	}
	if err := b.out.SendMessage(ctx, in.UserID, progress); err != nil {
		return err
	}
	if err := b.store.Append(ctx, in.UserID, storage.RoleUser, userText); err != nil {
		return b.replyError(ctx, in, err)
	}
	b.store.Save(ctx)

	response, err := b.llm.Complete(ctx, messages)
	if err != nil {
		return b.replyError(ctx, in, err)
	}
	b.recordCompletion(response.Usage)
	log.Infow("Completion succeeded", "reply_length", len(response.Content))

	reply := postprocess(response.Content)
	if err := b.store.Append(ctx, in.UserID, storage.RoleAssistant, reply); err != nil {
		return b.replyError(ctx, in, err)
	}
	b.store.Save(ctx)
	return b.sendChunked(ctx, in.UserID, reply)
}

func (b *Bot) handleFreeform(ctx context.Context, in Inbound, text string, log *zap.SugaredLogger) error {
	if _, err := b.store.Ensure(ctx, in.UserID, in.Username); err != nil {
		return b.replyError(ctx, in, err)
	}
	if err := b.store.Append(ctx, in.UserID, storage.RoleUser, text); err != nil {
		return b.replyError(ctx, in, err)
	}
	b.store.Save(ctx)

	history, err := b.store.RecentForPrompt(ctx, in.UserID, PromptWindow)
	if err != nil {
		return b.replyError(ctx, in, err)
	}

	response, err := b.llm.Complete(ctx, composeChat(history))
	if err != nil {
		return b.replyError(ctx, in, err)
	}
	b.recordCompletion(response.Usage)
	log.Infow("Completion succeeded", "reply_length", len(response.Content))

	reply := sanitize.Reformat(response.Content)
	if err := b.store.Append(ctx, in.UserID, storage.RoleAssistant, reply); err != nil {
		return b.replyError(ctx, in, err)
	}
	b.store.Save(ctx)
	return b.sendChunked(ctx, in.UserID, reply)
}

func (b *Bot) sendChunked(ctx context.Context, userID int64, text string) error {
	return SendChunks(ctx, text, b.chunkLimit, func(ctx context.Context, chunk string) error {
		return b.out.SendMessage(ctx, userID, chunk)
	})
}

// replyError tells the user a branch failed, once, with the failure
// description but never a trace, and hands the original error back for
// logging.
func (b *Bot) replyError(ctx context.Context, in Inbound, err error) error {
	if sendErr := b.out.SendMessage(ctx, in.UserID, fmt.Sprintf("⚠️ Server error: %v", err)); sendErr != nil {
		b.logger.Warnw("Error reply delivery failed", "user_id", in.UserID, "error", sendErr)
	}
	return err
}
