// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CHAT FILE WATCHER
// =============================================================================

// chatWatcher keeps the index in sync with the chats directory. The
// directory is flat, so a single non-recursive watch covers everything.
type chatWatcher struct {
	idx      *ChatIndex
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]time.Time // chat ID -> last change time
	removed  map[string]bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// startWatcher starts watching the chats directory.
func (idx *ChatIndex) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(idx.config.ChatsDir); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cw := &chatWatcher{
		idx:      idx,
		watcher:  watcher,
		debounce: idx.config.WatchDebounce,
		pending:  make(map[string]time.Time),
		removed:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}

	go cw.processEvents()
	go cw.processPending()

	idx.watcher = cw
	return nil
}

// processEvents turns file events into pending index updates.
func (cw *chatWatcher) processEvents() {
	defer func() {
		if r := recover(); r != nil {
			_ = r
		}
	}()

	for {
		select {
		case <-cw.ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			id := chatIDFromPath(event.Name)
			if id == "" {
				continue
			}

			cw.mu.Lock()
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				cw.pending[id] = time.Now()
				delete(cw.removed, id)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				cw.removed[id] = true
				delete(cw.pending, id)
			}
			cw.mu.Unlock()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			_ = err
		}
	}
}

// processPending applies debounced updates to the index.
func (cw *chatWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			cw.mu.Lock()
			var toUpdate []string
			for id, changeTime := range cw.pending {
				if now.Sub(changeTime) >= cw.debounce {
					toUpdate = append(toUpdate, id)
					delete(cw.pending, id)
				}
			}
			var toRemove []string
			for id := range cw.removed {
				toRemove = append(toRemove, id)
				delete(cw.removed, id)
			}
			cw.mu.Unlock()

			for _, id := range toUpdate {
				cw.idx.UpdateChat(id)
			}
			for _, id := range toRemove {
				cw.idx.RemoveChat(id)
			}
		}
	}
}

// Close stops watching and releases resources.
func (cw *chatWatcher) Close() error {
	cw.cancel()
	if cw.watcher != nil {
		return cw.watcher.Close()
	}
	return nil
}

// chatIDFromPath extracts a chat ID from an event path, or "" if the
// file isn't a chat blob (temp files from atomic writes are skipped).
func chatIDFromPath(path string) string {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return ""
	}
	if strings.HasPrefix(name, ".") {
		return ""
	}
	return strings.TrimSuffix(name, ".json")
}
