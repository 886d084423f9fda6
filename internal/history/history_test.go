// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/storage"
)

func newTestIndex(t *testing.T) (*ChatIndex, *storage.ChatStore) {
	t.Helper()

	dir := t.TempDir()
	chatsDir := filepath.Join(dir, "chats")
	store, err := storage.NewChatStoreWithDir(chatsDir)
	if err != nil {
		t.Fatalf("NewChatStoreWithDir() error = %v", err)
	}

	cfg := DefaultConfig(chatsDir)
	cfg.EnableWatch = false
	idx, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	return idx, store
}

func saveChat(t *testing.T, store *storage.ChatStore, title string, exchanges ...string) *model.Conversation {
	t.Helper()
	conv := model.NewConversation()
	if title != "" {
		conv.SetTitle(title)
	}
	for i, content := range exchanges {
		if i%2 == 0 {
			conv.AddUserMessage(content)
		} else {
			asst := conv.AddAssistantMessage()
			asst.AppendToken(content)
			conv.FinalizeLast(nil)
		}
	}
	if _, err := store.Save(conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return conv
}

func TestReindexAndSearch(t *testing.T) {
	idx, store := newTestIndex(t)

	saveChat(t, store, "goroutines",
		"how do I stop a goroutine leak",
		"use context cancellation and always drain channels")
	saveChat(t, store, "cooking", "best pasta sauce", "tomatoes and basil")

	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}

	stats := idx.Stats()
	if stats.ChatCount != 2 || stats.MessageCount != 4 {
		t.Errorf("stats = %+v", stats)
	}

	hits, err := idx.Search("goroutine", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].ChatTitle != "goroutines" || hits[0].Role != "user" {
		t.Errorf("hit = %+v", hits[0])
	}
	if !strings.Contains(hits[0].Snippet, ">>") {
		t.Errorf("snippet unmarked: %q", hits[0].Snippet)
	}
}

func TestSearchBeforeReindex(t *testing.T) {
	idx, _ := newTestIndex(t)

	if _, err := idx.Search("anything", nil); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("Search() error = %v, want ErrNotIndexed", err)
	}
}

func TestSearchRoleFilter(t *testing.T) {
	idx, store := newTestIndex(t)

	saveChat(t, store, "", "tell me about channels", "channels are typed conduits")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("channels", &SearchOptions{Roles: []string{"assistant"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Role != "assistant" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchPrefixOnLastTerm(t *testing.T) {
	idx, store := newTestIndex(t)

	saveChat(t, store, "", "explain mutexes please", "sure")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("mutex", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("prefix search hits = %d, want 1", len(hits))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx, store := newTestIndex(t)

	saveChat(t, store, "", "hello", "hi")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("   ", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %d, want 0", len(hits))
	}
}

func TestUpdateChat(t *testing.T) {
	idx, store := newTestIndex(t)

	conv := saveChat(t, store, "", "original text", "reply")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	conv.AddUserMessage("zebra question")
	if _, err := store.Save(conv); err != nil {
		t.Fatal(err)
	}
	if err := idx.UpdateChat(conv.ID); err != nil {
		t.Fatalf("UpdateChat() error = %v", err)
	}

	hits, err := idx.Search("zebra", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %d, want 1", len(hits))
	}
}

func TestUpdateChatDeletedOnDisk(t *testing.T) {
	idx, store := newTestIndex(t)

	conv := saveChat(t, store, "", "ephemeral content", "ok")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatal(err)
	}
	if err := idx.UpdateChat(conv.ID); err != nil {
		t.Fatalf("UpdateChat() error = %v", err)
	}

	hits, err := idx.Search("ephemeral", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %d, want 0 after delete", len(hits))
	}
}

func TestRemoveChatCascades(t *testing.T) {
	idx, store := newTestIndex(t)

	conv := saveChat(t, store, "", "findable needle", "found")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := idx.RemoveChat(conv.ID); err != nil {
		t.Fatalf("RemoveChat() error = %v", err)
	}

	hits, err := idx.Search("needle", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %d, want 0", len(hits))
	}
}

func TestSearchChatsDeduplicates(t *testing.T) {
	idx, store := newTestIndex(t)

	saveChat(t, store, "",
		"docker compose question", "docker compose answer",
	)
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	ids, err := idx.SearchChats("docker", 10)
	if err != nil {
		t.Fatalf("SearchChats() error = %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("ids = %v, want one distinct chat", ids)
	}
}

func TestStatsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	chatsDir := filepath.Join(dir, "chats")
	store, err := storage.NewChatStoreWithDir(chatsDir)
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(chatsDir)
	cfg.EnableWatch = false

	idx, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	saveChat(t, store, "", "persisted", "yes")
	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}
	idx.Close()

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if !reopened.IsIndexed() {
		t.Error("IsIndexed() = false after reopen")
	}
	if stats := reopened.Stats(); stats.ChatCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestWatcherPicksUpNewChat(t *testing.T) {
	dir := t.TempDir()
	chatsDir := filepath.Join(dir, "chats")
	store, err := storage.NewChatStoreWithDir(chatsDir)
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(chatsDir)
	cfg.WatchDebounce = 50 * time.Millisecond

	idx, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	if err := idx.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	saveChat(t, store, "", "watched keyword content", "ack")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		hits, err := idx.Search("watched", nil)
		if err == nil && len(hits) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("watcher never indexed the new chat")
}
