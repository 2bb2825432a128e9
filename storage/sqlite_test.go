package storage

import (
	"context"
	"strings"
	"testing"
)

func newTestSqliteStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("NewSqliteInMemory failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteAppendAndRecent(t *testing.T) {
	store := newTestSqliteStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, 1, RoleUser, "hi"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, 1, RoleAssistant, "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := store.RecentForPrompt(ctx, 1, 12)
	if err != nil {
		t.Fatalf("RecentForPrompt failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "hi" || entries[1].Text != "hello" {
		t.Errorf("expected oldest-first order, got %+v", entries)
	}
}

func TestSqliteRecentWindow(t *testing.T) {
	store := newTestSqliteStore(t)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, 1, RoleUser, text); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.RecentForPrompt(ctx, 1, 2)
	if err != nil {
		t.Fatalf("RecentForPrompt failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Text != "b" || entries[1].Text != "c" {
		t.Errorf("expected trailing window oldest first, got %+v", entries)
	}
}

func TestSqliteEnsureKeepsFirstUsername(t *testing.T) {
	store := newTestSqliteStore(t)
	ctx := context.Background()

	if _, err := store.Ensure(ctx, 5, "ana"); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	conv, err := store.Ensure(ctx, 5, "renamed")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if conv.Username != "ana" {
		t.Errorf("expected creation-time username, got %q", conv.Username)
	}
}

func TestSqliteResetClearsMessagesOnly(t *testing.T) {
	store := newTestSqliteStore(t)
	ctx := context.Background()

	if _, err := store.Ensure(ctx, 5, "ana"); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if err := store.Append(ctx, 5, RoleUser, "hi"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Reset(ctx, 5); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	entries, err := store.RecentForPrompt(ctx, 5, 12)
	if err != nil {
		t.Fatalf("RecentForPrompt failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty history after reset, got %d", len(entries))
	}

	conv, err := store.Ensure(ctx, 5, "other")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if conv.Username != "ana" {
		t.Errorf("expected user row kept, got username %q", conv.Username)
	}
}

func TestSqliteDisplayTruncation(t *testing.T) {
	store := newTestSqliteStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, 1, RoleUser, strings.Repeat("y", 200)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := store.RecentForDisplay(ctx, 1, 10)
	if err != nil {
		t.Fatalf("RecentForDisplay failed: %v", err)
	}
	want := strings.Repeat("y", 120) + "..."
	if entries[0].Text != want {
		t.Errorf("expected truncated display text, got %d runes", len([]rune(entries[0].Text)))
	}
}

func TestSqliteStats(t *testing.T) {
	store := newTestSqliteStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, 1, RoleUser, "q"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, 1, RoleAssistant, "a"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	// Another user's messages must not leak into the stats.
	if err := store.Append(ctx, 2, RoleUser, "other"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	st, err := store.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.UserMessages != 1 || st.AssistantMessages != 1 || st.TotalMessages != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
}
