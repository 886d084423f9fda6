// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides chat persistence for lmterm.
//
// This package handles saving and loading chats to/from disk, with
// support for search, listing, export, and a cap on stored chats.
//
// # Key Types
//
//   - ChatStore: Main storage type for chats
//   - model.ConversationMeta: Lightweight metadata for listing
//
// # Usage
//
// Create a store and save a chat:
//
//	store, err := storage.NewChatStore()
//	err = store.Save(conversation)
//
// List and load chats:
//
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//
// # Storage Location
//
// Chats are stored as JSON files under the XDG data directory,
// typically ~/.local/share/lmterm/chats/.
package storage
