// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotIndexed    = errors.New("chats not indexed")
	ErrIndexing      = errors.New("indexing in progress")
	ErrDatabaseError = errors.New("database error")
	ErrInvalidPath   = errors.New("invalid path")
)

// =============================================================================
// CHAT INDEX
// =============================================================================

// ChatIndex maintains a searchable SQLite index over saved chats.
type ChatIndex struct {
	db      *sql.DB
	store   *storage.ChatStore
	watcher *chatWatcher
	mu      sync.RWMutex

	// Indexing state
	indexing    bool
	indexingMu  sync.Mutex
	lastIndexed time.Time
	chatCount   int
	msgCount    int

	config *Config
}

// Config holds index configuration.
type Config struct {
	// ChatsDir is the directory holding chat JSON files
	ChatsDir string

	// DatabasePath is where to store the SQLite database
	DatabasePath string

	// EnableWatch keeps the index in sync as chat files change
	EnableWatch bool

	// WatchDebounce is the debounce duration for file change events
	WatchDebounce time.Duration
}

// DefaultConfig returns default configuration for a chats directory.
// The database sits next to the chats so it travels with the data.
func DefaultConfig(chatsDir string) *Config {
	return &Config{
		ChatsDir:      chatsDir,
		DatabasePath:  filepath.Join(filepath.Dir(chatsDir), "history.db"),
		EnableWatch:   true,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// Open opens or creates the chat index.
func Open(config *Config) (*ChatIndex, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	info, err := os.Stat(config.ChatsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidPath)
	}

	store, err := storage.NewChatStoreWithDir(config.ChatsDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &ChatIndex{
		db:     db,
		store:  store,
		config: config,
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := idx.loadStats(); err != nil {
		// Non-fatal, continue
	}

	return idx, nil
}

// initSchema creates the database schema.
func (idx *ChatIndex) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}
	if _, err := idx.db.Exec(InitMetadata); err != nil {
		return err
	}
	_, err := idx.db.Exec("UPDATE metadata SET value = ? WHERE key = 'chats_dir'", idx.config.ChatsDir)
	return err
}

// Close closes the index and releases resources.
func (idx *ChatIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.watcher != nil {
		idx.watcher.Close()
	}

	if idx.db != nil {
		return idx.db.Close()
	}

	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// Reindex rebuilds the index from the chat files on disk.
func (idx *ChatIndex) Reindex(ctx context.Context) error {
	idx.indexingMu.Lock()
	if idx.indexing {
		idx.indexingMu.Unlock()
		return ErrIndexing
	}
	idx.indexing = true
	idx.indexingMu.Unlock()

	defer func() {
		idx.indexingMu.Lock()
		idx.indexing = false
		idx.indexingMu.Unlock()
	}()

	startTime := time.Now()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM chats"); err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}

	metas, err := idx.store.List()
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	var chatCount, msgCount int
	for _, meta := range metas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conv, err := idx.store.Load(meta.ID)
		if err != nil {
			continue // Skip corrupted files
		}

		n, err := idx.indexChat(tx, conv)
		if err != nil {
			continue
		}
		chatCount++
		msgCount += n
	}

	now := time.Now().Unix()
	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_full_index'", now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = startTime
	idx.chatCount = chatCount
	idx.msgCount = msgCount
	idx.mu.Unlock()

	if idx.config.EnableWatch && idx.watcher == nil {
		if err := idx.startWatcher(); err != nil {
			// Non-fatal, the index just won't auto-update
		}
	}

	return nil
}

// indexChat inserts a single chat and its messages, returning the number
// of messages indexed.
func (idx *ChatIndex) indexChat(tx *sql.Tx, conv *model.Conversation) (int, error) {
	_, err := tx.Exec(`
		INSERT INTO chats (id, title, model, message_count, created_at, updated_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, conv.ID, conv.GetTitle(), conv.Model, len(conv.Messages),
		conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, msg := range conv.Messages {
		if msg.Content == "" {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO messages (chat_id, message_id, role, content, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, conv.ID, msg.ID, msg.Role.String(), msg.Content, msg.Timestamp.Unix())
		if err != nil {
			return 0, err
		}
		count++
	}

	return count, nil
}

// UpdateChat re-indexes a single chat by ID, replacing any prior entry.
func (idx *ChatIndex) UpdateChat(id string) error {
	conv, err := idx.store.Load(id)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			return idx.RemoveChat(id)
		}
		return err
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chats WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := idx.indexChat(tx, conv); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveChat removes a chat from the index. Cascade deletes its messages.
func (idx *ChatIndex) RemoveChat(id string) error {
	_, err := idx.db.Exec("DELETE FROM chats WHERE id = ?", id)
	return err
}

// loadStats loads statistics from the database.
func (idx *ChatIndex) loadStats() error {
	var lastIndexed int64
	err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_full_index'").Scan(&lastIndexed)
	if err != nil {
		return err
	}

	if lastIndexed > 0 {
		idx.lastIndexed = time.Unix(lastIndexed, 0)
	}

	if err := idx.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&idx.chatCount); err != nil {
		return err
	}
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&idx.msgCount); err != nil {
		return err
	}

	return nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats holds index statistics.
type Stats struct {
	ChatCount    int
	MessageCount int
	LastIndexed  time.Time
	IsIndexing   bool
	DatabaseSize int64
}

// Stats returns current index statistics.
func (idx *ChatIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.indexingMu.Lock()
	indexing := idx.indexing
	idx.indexingMu.Unlock()

	var dbSize int64
	if info, err := os.Stat(idx.config.DatabasePath); err == nil {
		dbSize = info.Size()
	}

	return Stats{
		ChatCount:    idx.chatCount,
		MessageCount: idx.msgCount,
		LastIndexed:  idx.lastIndexed,
		IsIndexing:   indexing,
		DatabaseSize: dbSize,
	}
}

// IsIndexed returns true if the chats have been indexed.
func (idx *ChatIndex) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.lastIndexed.IsZero()
}
