// Package storage provides SQLite conversation storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements Store on a SQLite database file. Unlike the
// snapshot file store, every append is durable immediately, so Save is a
// no-op.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_messages_user
		ON messages(user_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Ensure returns the conversation identity for a user, creating it on first
// contact. Message history is not materialized here.
func (s *SqliteStore) Ensure(ctx context.Context, userID int64, username string) (Conversation, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username) VALUES (?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, username)
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to ensure user: %w", err)
	}

	var stored string
	if err := s.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE user_id = ?`, userID).Scan(&stored); err != nil {
		return Conversation{}, fmt.Errorf("failed to read user: %w", err)
	}

	return Conversation{UserID: userID, Username: stored, Messages: []Entry{}}, nil
}

// Append adds an entry to a user's history.
func (s *SqliteStore) Append(ctx context.Context, userID int64, role, text string) error {
	if _, err := s.Ensure(ctx, userID, ""); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (user_id, role, content) VALUES (?, ?, ?)`,
		userID, role, text)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// RecentForPrompt returns up to count most recent entries, oldest first.
func (s *SqliteStore) RecentForPrompt(ctx context.Context, userID int64, count int) ([]Entry, error) {
	if count <= 0 {
		return []Entry{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages
		 WHERE user_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		userID, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Role, &e.Text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		newestFirst = append(newestFirst, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	// Reverse to oldest-first.
	entries := make([]Entry, len(newestFirst))
	for i, e := range newestFirst {
		entries[len(newestFirst)-1-i] = e
	}
	return entries, nil
}

// RecentForDisplay returns up to count most recent entries flattened for
// a single-line history view.
func (s *SqliteStore) RecentForDisplay(ctx context.Context, userID int64, count int) ([]Entry, error) {
	entries, err := s.RecentForPrompt(ctx, userID, count)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Text = displayText(entries[i].Text)
	}
	return entries, nil
}

// Reset deletes a user's messages, keeping the user row.
func (s *SqliteStore) Reset(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	return nil
}

// Stats returns message counts for a user.
func (s *SqliteStore) Stats(ctx context.Context, userID int64) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM messages
		 WHERE user_id = ?
		 GROUP BY role`,
		userID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats: %w", err)
		}
		switch role {
		case RoleUser:
			st.UserMessages = n
		case RoleAssistant:
			st.AssistantMessages = n
		}
		st.TotalMessages += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return st, nil
}

// Save is a no-op: SQLite writes are durable at append time.
func (s *SqliteStore) Save(ctx context.Context) {}

// Verify SqliteStore implements Store
var _ Store = (*SqliteStore)(nil)
