// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides full-text search over saved chats.
//
// Chats live on disk as JSON files (see package storage); this package
// maintains a SQLite FTS index over their messages so `lmterm history
// search` stays fast as the chat directory grows. The index is a cache:
// it can always be rebuilt from the chat files, and every operation here
// is best-effort from the caller's point of view.
//
// # Usage
//
//	idx, err := history.Open(history.DefaultConfig(chatsDir))
//	err = idx.Reindex(ctx)
//	hits, err := idx.Search("goroutine leak", nil)
//
// A file watcher keeps the index in sync as chats are saved or deleted.
package history
