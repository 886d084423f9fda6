// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// The view is a single Bubble Tea model wiring a viewport, a text input
// and a spinner around a model.Conversation. Responses stream in over a
// channel and are batched through a StreamingBuffer so rendering stays
// at a steady frame rate regardless of token throughput. Model loads
// run through the modelmgr driver and surface as a blocking overlay
// with a minimum visible duration so fast loads do not flash.
package chat
