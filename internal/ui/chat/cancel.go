// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file guards the stream cancel function behind a mutex. The Update
// loop and the streaming goroutine both touch it, and Bubble Tea copies
// the Model on every update, so the manager must live behind a pointer.
package chat

import (
	"context"
	"sync"
)

// cancelManager holds the cancel function for the in-flight request.
// Always construct with newCancelManager and store as *cancelManager so
// Model copies share one mutex.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// arm stores the cancel function for a newly started request. Any
// previous function is invoked first so an abandoned stream cannot
// leak its context.
func (cm *cancelManager) arm(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = fn
}

// cancel invokes and clears the stored cancel function. Safe to call
// repeatedly or with nothing armed.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// active reports whether a cancel function is currently armed.
func (cm *cancelManager) active() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.cancelFunc != nil
}
