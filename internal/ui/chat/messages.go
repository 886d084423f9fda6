// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file defines the Bubble Tea message types the view reacts to.
// Every asynchronous event, streamed tokens, model load progress,
// server probes, arrives as one of these typed messages.
package chat

import (
	"time"

	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/model"
)

// =============================================================================
// SERVER / MODEL MESSAGES
// =============================================================================

// ServerStatusMsg reports whether the inference server answered a probe.
type ServerStatusMsg struct {
	Reachable bool
	Err       error
}

// ModelListMsg carries the result of a models listing.
type ModelListMsg struct {
	Models []lmstudio.Model
	Err    error
}

// ModelResolvedMsg reports the model id the reconciler settled on.
// Loaded is false when the server reports no loaded model.
type ModelResolvedMsg struct {
	ModelID string
	Loaded  bool
}

// ModelLoadStartedMsg announces that a model load has begun. StartedAt
// comes from the driver so the overlay can compute its minimum
// visibility window against the true start of the load.
type ModelLoadStartedMsg struct {
	ModelID   string
	StartedAt time.Time
}

// ModelLoadResultMsg reports the outcome of a model load or unload.
type ModelLoadResultMsg struct {
	ModelID string
	Err     error
}

// OverlayExpiredMsg fires when the loading overlay has been visible for
// its minimum duration.
type OverlayExpiredMsg struct{}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg announces that streaming has begun for a message.
type StreamStartMsg struct {
	MessageID string
}

// StreamTokenMsg carries one streamed token.
type StreamTokenMsg struct {
	MessageID string
	Token     string
}

// StreamCompleteMsg announces the end of a stream. Err is nil on a
// clean finish; context.Canceled indicates a user cancellation.
type StreamCompleteMsg struct {
	MessageID string
	Stats     *model.Statistics
	Err       error
}

// StreamTickMsg drives buffered token flushes at the render frame rate.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// MISC MESSAGES
// =============================================================================

// StatusNoteMsg shows a transient note in the status bar.
type StatusNoteMsg struct {
	Note string
}

// ClearStatusNoteMsg removes the transient status note.
type ClearStatusNoteMsg struct{}

// ChatSavedMsg reports the result of a background chat save.
type ChatSavedMsg struct {
	Path string
	Err  error
}

// SpeakDoneMsg reports that a text-to-speech run finished.
type SpeakDoneMsg struct {
	Err error
}
