// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the lmterm TUI.
//
// This file defines the Theme, a pre-built set of Lip Gloss styles shared
// by every view. Build one Theme at program start and pass it by pointer;
// styles are rebuilt only when the terminal is resized.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// LAYOUT MODES
// =============================================================================

// LayoutMode describes how much horizontal room the terminal offers.
type LayoutMode int

const (
	// LayoutNarrow is for terminals under 60 columns.
	LayoutNarrow LayoutMode = iota
	// LayoutMedium is for terminals between 60 and 99 columns.
	LayoutMedium
	// LayoutWide is for terminals at 100 columns or more.
	LayoutWide
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds every style the TUI renders with. The zero value is not
// usable; construct with NewTheme.
type Theme struct {
	// Terminal capabilities
	Profile    termenv.Profile
	DarkBg     bool
	LightTheme bool

	// Dimensions
	Width  int
	Height int

	// Header / banner
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	ModelBanner lipgloss.Style
	ModelName   lipgloss.Style

	// Message bubbles
	UserLabel       lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantLabel  lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorLabel      lipgloss.Style
	ErrorBubble     lipgloss.Style
	ThinkingBlock   lipgloss.Style
	Timestamp       lipgloss.Style
	Stats           lipgloss.Style

	// Input area
	InputPrompt lipgloss.Style
	InputBox    lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	StatusGood  lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusBad   lipgloss.Style

	// Overlays
	OverlayBox    lipgloss.Style
	OverlayTitle  lipgloss.Style
	OverlayDetail lipgloss.Style
	Spinner       lipgloss.Style

	// Model picker
	PickerBox      lipgloss.Style
	PickerTitle    lipgloss.Style
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
	PickerLoaded   lipgloss.Style

	// Help overlay
	HelpBox  lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	// Generic
	Muted lipgloss.Style
}

// NewTheme builds a theme for the current terminal. When lightTheme is
// true the light variant of every AdaptiveColor is used regardless of
// the detected background; otherwise the background is probed.
func NewTheme(lightTheme bool) *Theme {
	profile := termenv.ColorProfile()

	darkBg := termenv.HasDarkBackground()
	if lightTheme {
		darkBg = false
	}
	lipgloss.SetHasDarkBackground(darkBg)

	t := &Theme{
		Profile:    profile,
		DarkBg:     darkBg,
		LightTheme: lightTheme,
		Width:      80,
		Height:     24,
	}
	t.initStyles()
	return t
}

// initStyles builds every style from the shared palette.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1).
		Width(t.Width)

	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ModelBanner = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1).
		Width(t.Width)

	t.ModelName = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Bold(true)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.ErrorLabel = lipgloss.NewStyle().
		Foreground(ErrorBubbleFg).
		Bold(true)

	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(ErrorBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(ErrorBubbleBorder).
		PaddingLeft(1)

	t.ThinkingBlock = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Stats = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1).
		Width(t.Width - 2)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1).
		Width(t.Width)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.StatusGood = lipgloss.NewStyle().
		Foreground(Emerald)

	t.StatusWarn = lipgloss.NewStyle().
		Foreground(Amber)

	t.StatusBad = lipgloss.NewStyle().
		Foreground(Rose)

	t.OverlayBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(1, 3)

	t.OverlayTitle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.OverlayDetail = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Cyan)

	t.PickerBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.PickerTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.PickerItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.PickerSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true)

	t.PickerLoaded = lipgloss.NewStyle().
		Foreground(Emerald)

	t.HelpBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)

	t.HelpKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.HelpDesc = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme for a new terminal size and rebuilds the
// width-dependent styles.
func (t *Theme) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 5 {
		height = 5
	}
	t.Width = width
	t.Height = height
	t.initStyles()
}

// GetLayoutMode returns the layout mode for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	switch {
	case t.Width < 60:
		return LayoutNarrow
	case t.Width < 100:
		return LayoutMedium
	default:
		return LayoutWide
	}
}
