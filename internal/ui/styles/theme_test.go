// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme(false)
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}
	if theme.Width != 80 || theme.Height != 24 {
		t.Errorf("default size = %dx%d, want 80x24", theme.Width, theme.Height)
	}
}

func TestNewThemeLightForcesLightBackground(t *testing.T) {
	theme := NewTheme(true)
	if theme.DarkBg {
		t.Error("light theme should not report a dark background")
	}
	if !theme.LightTheme {
		t.Error("LightTheme flag not set")
	}
}

func TestSetSize(t *testing.T) {
	theme := NewTheme(false)

	theme.SetSize(120, 40)
	if theme.Width != 120 || theme.Height != 40 {
		t.Errorf("size = %dx%d, want 120x40", theme.Width, theme.Height)
	}

	// Clamped to minimums
	theme.SetSize(5, 2)
	if theme.Width != 20 || theme.Height != 5 {
		t.Errorf("clamped size = %dx%d, want 20x5", theme.Width, theme.Height)
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  LayoutMode
	}{
		{"very narrow", 40, LayoutNarrow},
		{"just under narrow limit", 59, LayoutNarrow},
		{"medium lower bound", 60, LayoutMedium},
		{"medium upper bound", 99, LayoutMedium},
		{"wide lower bound", 100, LayoutWide},
		{"very wide", 200, LayoutWide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := NewTheme(false)
			theme.SetSize(tt.width, 24)
			if got := theme.GetLayoutMode(); got != tt.want {
				t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
			}
		})
	}
}

func TestRenderStatusHelpers(t *testing.T) {
	if s := RenderSuccess("done"); !strings.Contains(s, "[OK]") || !strings.Contains(s, "done") {
		t.Errorf("RenderSuccess = %q", s)
	}
	if s := RenderError("boom"); !strings.Contains(s, "[X]") {
		t.Errorf("RenderError = %q", s)
	}
	if s := RenderStatus(false, "nope"); !strings.Contains(s, "[X]") {
		t.Errorf("RenderStatus(false) = %q", s)
	}
	if s := RenderStatus(true, "yep"); !strings.Contains(s, "[OK]") {
		t.Errorf("RenderStatus(true) = %q", s)
	}
}
