// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the lmterm command surface.
//
// Parsing is hand-rolled: Parse reads os.Args into a Command plus an
// Args struct, and main dispatches to the Handle* functions in this
// package. The default command launches the TUI; everything else is a
// one-shot that prints and exits.
package cli
