package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Leanba/chatbot-gym-gemini/llm"
	"github.com/Leanba/chatbot-gym-gemini/storage"
)

type fakeCompleter struct {
	response llm.Response
	err      error
	calls    int
	lastMsgs []llm.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return f.response, nil
}

type fakeMessenger struct {
	sent []string
	err  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func newTestBot(t *testing.T, completer Completer) (*Bot, *fakeMessenger, storage.Store) {
	t.Helper()
	store := storage.NewFileStore("", zap.NewNop().Sugar())
	out := &fakeMessenger{}
	return New(store, completer, out, zap.NewNop().Sugar()), out, store
}

func TestHandleStartGreets(t *testing.T) {
	completer := &fakeCompleter{}
	bot, out, store := newTestBot(t, completer)

	err := bot.HandleMessage(context.Background(), Inbound{UserID: 1, Username: "ana", Text: "/start"})
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(out.sent) != 1 || !strings.Contains(out.sent[0], "gym assistant") {
		t.Errorf("Expected greeting, got %q", out.sent)
	}
	if completer.calls != 0 {
		t.Errorf("Greeting should not call the completion client, got %d calls", completer.calls)
	}
	conv, err := store.Ensure(context.Background(), 1, "other")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if conv.Username != "ana" {
		t.Errorf("Expected username recorded at first contact, got %q", conv.Username)
	}
}

func TestFreeformAppendsReformatsAndDelivers(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Content: "**Squats**\n- keep your back straight"}}
	bot, out, store := newTestBot(t, completer)

	err := bot.HandleMessage(context.Background(), Inbound{UserID: 7, Username: "leo", Text: "how do I squat?"})
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if completer.calls != 1 {
		t.Fatalf("Expected one completion call, got %d", completer.calls)
	}
	if len(out.sent) != 1 {
		t.Fatalf("Expected one outbound message, got %d", len(out.sent))
	}
	if out.sent[0] != "🔹 Squats\n🔸 keep your back straight" {
		t.Errorf("Reply not reformatted: %q", out.sent[0])
	}

	history, err := store.RecentForPrompt(context.Background(), 7, PromptWindow)
	if err != nil {
		t.Fatalf("RecentForPrompt failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected user+assistant entries, got %d", len(history))
	}
	if history[0].Role != storage.RoleUser || history[0].Text != "how do I squat?" {
		t.Errorf("Unexpected user entry: %+v", history[0])
	}
	if history[1].Role != storage.RoleAssistant || history[1].Text != out.sent[0] {
		t.Errorf("Assistant entry should hold the reformatted reply: %+v", history[1])
	}
}

func TestFreeformPromptCarriesPersonaAndHistory(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Content: "ok"}}
	bot, _, _ := newTestBot(t, completer)

	if err := bot.HandleMessage(context.Background(), Inbound{UserID: 3, Text: "hello"}); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(completer.lastMsgs) != 2 {
		t.Fatalf("Expected system + user messages, got %d", len(completer.lastMsgs))
	}
	if completer.lastMsgs[0].Role != "system" {
		t.Errorf("First message should carry the persona, got role %q", completer.lastMsgs[0].Role)
	}
	if completer.lastMsgs[1].Content != "hello" {
		t.Errorf("Current input should be the last message, got %q", completer.lastMsgs[1].Content)
	}
}

func TestEmptySummaryArgumentShortCircuits(t *testing.T) {
	completer := &fakeCompleter{}
	bot, out, store := newTestBot(t, completer)

	err := bot.HandleMessage(context.Background(), Inbound{UserID: 2, Text: "/summary "})
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if completer.calls != 0 {
		t.Errorf("Empty argument must not reach the completion client, got %d calls", completer.calls)
	}
	if len(out.sent) != 1 || !strings.Contains(out.sent[0], "/summary <text>") {
		t.Errorf("Expected usage hint, got %q", out.sent)
	}
	history, _ := store.RecentForPrompt(context.Background(), 2, PromptWindow)
	if len(history) != 0 {
		t.Errorf("Empty argument must not mutate history, got %d entries", len(history))
	}
}

func TestSummaryWithArgument(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Content: "Short version."}}
	bot, out, store := newTestBot(t, completer)

	err := bot.HandleMessage(context.Background(), Inbound{UserID: 4, Text: "/summary long training article"})
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if completer.calls != 1 {
		t.Fatalf("Expected one completion call, got %d", completer.calls)
	}
	if len(out.sent) != 2 {
		t.Fatalf("Expected progress + result, got %d messages", len(out.sent))
	}
	if !strings.Contains(out.sent[0], "⏳") {
		t.Errorf("First message should be the progress notice, got %q", out.sent[0])
	}
	if out.sent[1] != "Short version." {
		t.Errorf("Unexpected summary reply: %q", out.sent[1])
	}
	if !strings.Contains(completer.lastMsgs[1].Content, "long training article") {
		t.Errorf("Task prompt should embed the argument, got %q", completer.lastMsgs[1].Content)
	}
	history, _ := store.RecentForPrompt(context.Background(), 4, PromptWindow)
	if len(history) != 2 {
		t.Fatalf("Expected request and reply stored, got %d entries", len(history))
	}
	if history[0].Text != "/summary long training article" {
		t.Errorf("Stored user entry should keep the raw command, got %q", history[0].Text)
	}
}

func TestSentimentExtractsLabel(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Content: "SENTIMENT: Positive\nEXPLANATION: upbeat tone"}}
	bot, out, _ := newTestBot(t, completer)

	err := bot.HandleMessage(context.Background(), Inbound{UserID: 5, Text: "sentiment I crushed my PR today!"})
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(out.sent) != 2 {
		t.Fatalf("Expected progress + result, got %d messages", len(out.sent))
	}
	reply := out.sent[1]
	if !strings.HasPrefix(reply, "🔎 Sentiment: positive\n💬 ") {
		t.Errorf("Unexpected sentiment reply: %q", reply)
	}
	if strings.Count(reply, "\n") != 1 {
		t.Errorf("Explanation should be flattened to one line: %q", reply)
	}
}

func TestBareSentimentWithoutArgumentIsFreeform(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Content: "ok"}}
	bot, out, _ := newTestBot(t, completer)

	if err := bot.HandleMessage(context.Background(), Inbound{UserID: 5, Text: "sentiment"}); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if completer.calls != 1 {
		t.Fatalf("Bare word without argument should go to freeform, got %d calls", completer.calls)
	}
	if len(out.sent) != 1 || out.sent[0] != "ok" {
		t.Errorf("Expected freeform reply, got %q", out.sent)
	}
}

func TestUpstreamFailureRepliesOnceNoAssistantEntry(t *testing.T) {
	upstream := &llm.UpstreamError{Provider: "gemini", Err: errors.New("quota exceeded")}
	completer := &fakeCompleter{err: upstream}
	bot, out, store := newTestBot(t, completer)

	err := bot.HandleMessage(context.Background(), Inbound{UserID: 9, Text: "leg day plan"})
	if !errors.Is(err, upstream) {
		t.Fatalf("Expected the upstream error back, got %v", err)
	}
	if len(out.sent) != 1 {
		t.Fatalf("Expected exactly one error reply, got %d messages", len(out.sent))
	}
	if !strings.Contains(out.sent[0], "⚠️ Server error:") || !strings.Contains(out.sent[0], "quota exceeded") {
		t.Errorf("Error reply should carry the failure description, got %q", out.sent[0])
	}
	history, _ := store.RecentForPrompt(context.Background(), 9, PromptWindow)
	if len(history) != 1 || history[0].Role != storage.RoleUser {
		t.Errorf("Only the user entry should remain after a failure, got %+v", history)
	}
}

func TestHistoryViewAndReset(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Content: "do pull ups"}}
	bot, out, _ := newTestBot(t, completer)
	ctx := context.Background()

	if err := bot.HandleMessage(ctx, Inbound{UserID: 6, Text: "back exercises?"}); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	out.sent = nil

	if err := bot.HandleMessage(ctx, Inbound{UserID: 6, Text: "/history"}); err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(out.sent) != 1 {
		t.Fatalf("Expected one history message, got %d", len(out.sent))
	}
	view := out.sent[0]
	if !strings.HasPrefix(view, "Recent interactions:\n") {
		t.Errorf("Unexpected history header: %q", view)
	}
	if !strings.Contains(view, "U: back exercises?") || !strings.Contains(view, "A: do pull ups") {
		t.Errorf("History view missing entries: %q", view)
	}

	out.sent = nil
	if err := bot.HandleMessage(ctx, Inbound{UserID: 6, Text: "/reset"}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(out.sent) != 1 || !strings.Contains(out.sent[0], "🧹") {
		t.Errorf("Expected reset confirmation, got %q", out.sent)
	}

	out.sent = nil
	if err := bot.HandleMessage(ctx, Inbound{UserID: 6, Text: "/history"}); err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0] != "No history yet." {
		t.Errorf("Expected empty history notice, got %q", out.sent)
	}
}

func TestStatsReportsCounters(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{
		Content: "ok",
		Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
	bot, out, _ := newTestBot(t, completer)
	ctx := context.Background()

	if err := bot.HandleMessage(ctx, Inbound{UserID: 8, Text: "hi"}); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	out.sent = nil

	if err := bot.HandleMessage(ctx, Inbound{UserID: 8, Text: "/stats"}); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(out.sent) != 1 {
		t.Fatalf("Expected one stats message, got %d", len(out.sent))
	}
	view := out.sent[0]
	for _, want := range []string{"Messages sent: 1", "Replies received: 1", "Total stored: 2", "Completions served (all users): 1", "Tokens used (all users): 15"} {
		if !strings.Contains(view, want) {
			t.Errorf("Stats view missing %q: %q", want, view)
		}
	}
}

func TestLongReplyIsChunked(t *testing.T) {
	long := strings.Repeat("a", 9000)
	completer := &fakeCompleter{response: llm.Response{Content: long}}
	bot, out, _ := newTestBot(t, completer)

	if err := bot.HandleMessage(context.Background(), Inbound{UserID: 11, Text: "write a lot"}); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(out.sent) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(out.sent))
	}
	if strings.Join(out.sent, "") != long {
		t.Error("Chunks do not reassemble the reply")
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text    string
		command string
		arg     string
	}{
		{"/start", "start", ""},
		{"/help@gymbot", "help", ""},
		{"/summary some text", "summary", "some text"},
		{"/summary", "summary", ""},
		{"summary some text", "summary", "some text"},
		{"Summary some text", "summary", "some text"},
		{"summary", "", "summary"},
		{"/unknown thing", "", "/unknown thing"},
		{"plain question", "", "plain question"},
	}
	for _, tc := range cases {
		command, arg := splitCommand(tc.text)
		if command != tc.command || arg != tc.arg {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", tc.text, command, arg, tc.command, tc.arg)
		}
	}
}

func TestFormatSentimentDefaultsToNeutral(t *testing.T) {
	reply := formatSentiment("the model rambled with no verdict")
	if !strings.HasPrefix(reply, "🔎 Sentiment: neutral\n💬 ") {
		t.Errorf("Expected neutral fallback, got %q", reply)
	}
}
