// Package storage provides JSON snapshot conversation storage.
//
// Information Hiding:
// - Map storage structure and locking hidden from users
// - Snapshot encoding (JSON keyed by stringified user id) encapsulated
// - Best-effort persistence policy applied here, not by callers
package storage

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// FileStore implements Store with an in-memory map and a best-effort JSON
// snapshot on disk. The snapshot is read once at construction; a missing or
// malformed file degrades to an empty store rather than failing startup.
type FileStore struct {
	path   string
	logger *zap.SugaredLogger

	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewFileStore creates a file-backed store, loading any existing snapshot
// at path. An empty path disables persistence entirely.
func NewFileStore(path string, logger *zap.SugaredLogger) *FileStore {
	s := &FileStore{
		path:          path,
		logger:        logger,
		conversations: make(map[string]*Conversation),
	}
	s.load()
	return s
}

// load reads the snapshot file. Every failure mode degrades to an empty
// store: history persistence is a convenience, not a durability contract.
func (s *FileStore) load() {
	if s.path == "" {
		return
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnw("history snapshot unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}
	loaded := make(map[string]*Conversation)
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logger.Warnw("history snapshot malformed, starting empty", "path", s.path, "error", err)
		return
	}
	// A JSON null value decodes to a nil conversation; drop such entries so
	// the user's next message recreates them instead of dereferencing nil.
	for key, conv := range loaded {
		if conv == nil {
			s.logger.Warnw("history snapshot entry invalid, dropping", "path", s.path, "key", key)
			delete(loaded, key)
		}
	}
	s.conversations = loaded
}

// Ensure returns the conversation for a user, creating it on first contact.
func (s *FileStore) Ensure(ctx context.Context, userID int64, username string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensureLocked(userID, username)
	return *conv, nil
}

func (s *FileStore) ensureLocked(userID int64, username string) *Conversation {
	key := strconv.FormatInt(userID, 10)
	if conv, ok := s.conversations[key]; ok {
		return conv
	}
	conv := &Conversation{UserID: userID, Username: username, Messages: []Entry{}}
	s.conversations[key] = conv
	return conv
}

// Append adds an entry to a user's history.
func (s *FileStore) Append(ctx context.Context, userID int64, role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensureLocked(userID, "")
	conv.Messages = append(conv.Messages, Entry{Role: role, Text: text})
	return nil
}

// RecentForPrompt returns up to count most recent entries, oldest first.
func (s *FileStore) RecentForPrompt(ctx context.Context, userID int64, count int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[strconv.FormatInt(userID, 10)]
	if !ok {
		return []Entry{}, nil
	}
	return lastEntries(conv.Messages, count), nil
}

// RecentForDisplay returns up to count most recent entries flattened for
// a single-line history view.
func (s *FileStore) RecentForDisplay(ctx context.Context, userID int64, count int) ([]Entry, error) {
	entries, err := s.RecentForPrompt(ctx, userID, count)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Text = displayText(entries[i].Text)
	}
	return entries, nil
}

// Reset empties a user's history, keeping identity.
func (s *FileStore) Reset(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[strconv.FormatInt(userID, 10)]; ok {
		conv.Messages = []Entry{}
	}
	return nil
}

// Stats returns message counts for a user.
func (s *FileStore) Stats(ctx context.Context, userID int64) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	conv, ok := s.conversations[strconv.FormatInt(userID, 10)]
	if !ok {
		return st, nil
	}
	for _, m := range conv.Messages {
		switch m.Role {
		case RoleUser:
			st.UserMessages++
		case RoleAssistant:
			st.AssistantMessages++
		}
	}
	st.TotalMessages = len(conv.Messages)
	return st, nil
}

// Save writes the whole store to the snapshot file. A write failure is
// logged and swallowed; the in-memory state stays authoritative.
func (s *FileStore) Save(ctx context.Context) {
	if s.path == "" {
		return
	}

	s.mu.RLock()
	raw, err := json.MarshalIndent(s.conversations, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warnw("history snapshot encode failed", "path", s.path, "error", err)
		return
	}

	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		s.logger.Warnw("history snapshot write failed", "path", s.path, "error", err)
	}
}

// Close is a no-op for the file store; Save is the durability hook.
func (s *FileStore) Close() error {
	return nil
}

// Verify FileStore implements Store
var _ Store = (*FileStore)(nil)
