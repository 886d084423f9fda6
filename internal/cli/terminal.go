// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal capability detection for lmterm CLI.
//
// Detects TTY status, dimensions and color support so output degrades
// cleanly when piped or running on a dumb terminal.
package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY reports whether stdin is an interactive terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsDumbTerminal reports whether the terminal cannot host the TUI.
func IsDumbTerminal() bool {
	if !IsTTY() || !IsStdoutTTY() {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}

// =============================================================================
// DIMENSIONS
// =============================================================================

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// GetTerminalWidth returns the terminal width, or 80 when unknown.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// GetTerminalSize returns the terminal dimensions with fallbacks.
func GetTerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return defaultWidth, defaultHeight
	}
	return w, h
}

// =============================================================================
// COLOR SUPPORT
// =============================================================================

// ColorsEnabled reports whether colored output should be produced.
// NO_COLOR is honored, and piped output is never colored.
func ColorsEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !IsStdoutTTY() {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// GetColorProfile returns the detected termenv color profile.
func GetColorProfile() termenv.Profile {
	return termenv.ColorProfile()
}
