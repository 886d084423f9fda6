// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file defines keyboard bindings for the chat interface along with
// the help text shown in the help overlay.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Up             key.Binding
	Down           key.Binding
	PageUp         key.Binding
	PageDown       key.Binding
	Home           key.Binding
	End            key.Binding
	Submit         key.Binding
	Cancel         key.Binding
	Help           key.Binding
	Quit           key.Binding
	Clear          key.Binding
	NewChat        key.Binding
	Models         key.Binding
	ToggleThinking key.Binding
	ToggleScroll   key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("Home", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "go to bottom"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send message"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel streaming"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear conversation"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Models: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "model picker"),
		),
		ToggleThinking: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "show/hide thinking"),
		),
		ToggleScroll: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "toggle auto-scroll"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar hint.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.Models, k.Help, k.Quit}
}

// FullHelp returns bindings grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Submit, k.Cancel, k.Clear, k.NewChat},
		{k.Models, k.ToggleThinking, k.ToggleScroll, k.Help, k.Quit},
	}
}

// =============================================================================
// HELP TEXT
// =============================================================================

// HelpItem is a single entry in the help overlay.
type HelpItem struct {
	Key  string
	Desc string
}

// GetHelpItems returns the entries rendered in the help overlay.
func GetHelpItems() []HelpItem {
	return []HelpItem{
		{"Enter", "Send message"},
		{"Esc", "Cancel streaming / close overlay"},
		{"up/down", "Scroll chat"},
		{"PgUp/PgDn", "Page up / down"},
		{"Home/End", "Jump to top / bottom"},
		{"C-o", "Open model picker"},
		{"C-n", "New chat (saves current)"},
		{"C-l", "Clear conversation"},
		{"C-t", "Show or hide thinking spans"},
		{"C-s", "Toggle auto-scroll"},
		{"C-h", "Toggle this help"},
		{"C-c", "Quit"},
	}
}
