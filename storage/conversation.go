// Package storage provides conversation history storage abstraction.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between JSON snapshot file and SQLite without API changes
// - Each storage implementation encapsulates its own data structures and locking
package storage

import (
	"context"
	"strings"
)

// Message roles. History only ever holds the two conversational roles;
// the persona prompt is composed at request time and never stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is a single role-tagged message. Immutable once appended.
type Entry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Conversation is the per-user history. The username is captured on first
// contact and kept as-is afterwards, even if the user renames themselves.
type Conversation struct {
	UserID   int64   `json:"user_id"`
	Username string  `json:"username"`
	Messages []Entry `json:"messages"`
}

// Stats summarizes one user's stored history.
type Stats struct {
	UserMessages      int
	AssistantMessages int
	TotalMessages     int
}

// Store defines the interface for per-user conversation history.
// Implementations must be safe for concurrent use.
type Store interface {
	// Ensure returns the conversation for a user, creating an empty one on
	// first contact. The username is recorded only at creation time.
	Ensure(ctx context.Context, userID int64, username string) (Conversation, error)

	// Append adds an entry to a user's history.
	Append(ctx context.Context, userID int64, role, text string) error

	// RecentForPrompt returns up to count most recent entries, oldest first.
	RecentForPrompt(ctx context.Context, userID int64, count int) ([]Entry, error)

	// RecentForDisplay returns up to count most recent entries, oldest
	// first, with each text flattened to a single line and truncated to
	// DisplayTruncateLen runes plus an ellipsis marker.
	RecentForDisplay(ctx context.Context, userID int64, count int) ([]Entry, error)

	// Reset empties a user's message history, keeping id and username.
	Reset(ctx context.Context, userID int64) error

	// Stats returns message counts for a user.
	Stats(ctx context.Context, userID int64) (Stats, error)

	// Save persists the whole store. Best-effort: failures are logged by
	// the implementation and never returned.
	Save(ctx context.Context)

	// Close releases backend resources.
	Close() error
}

// DisplayTruncateLen is the per-entry rune limit for the history view.
const DisplayTruncateLen = 120

// displayText flattens an entry's text for single-line display: truncation
// first, then newline collapsing, mirroring the history view's established
// output.
func displayText(text string) string {
	runes := []rune(text)
	if len(runes) > DisplayTruncateLen {
		text = string(runes[:DisplayTruncateLen]) + "..."
	}
	return strings.ReplaceAll(text, "\n", " ")
}

// lastEntries returns up to count trailing entries of messages, oldest
// first, as a fresh slice.
func lastEntries(messages []Entry, count int) []Entry {
	if count <= 0 || len(messages) == 0 {
		return []Entry{}
	}
	start := len(messages) - count
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(messages)-start)
	copy(out, messages[start:])
	return out
}
