// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file renders finalized assistant messages as markdown. The
// glamour renderer is rebuilt only when the wrap width or theme
// changes; streaming messages bypass it and render as plain text.
package chat

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	mdMu       sync.Mutex
	mdRenderer *glamour.TermRenderer
	mdWidth    int
	mdLight    bool
)

// renderMarkdown renders markdown for terminal display. Falls back to
// the raw text when rendering fails, so a malformed response is still
// readable.
func renderMarkdown(text string, width int, light bool) string {
	if width < 20 {
		width = 20
	}

	mdMu.Lock()
	defer mdMu.Unlock()

	if mdRenderer == nil || mdWidth != width || mdLight != light {
		styleName := "dark"
		if light {
			styleName = "light"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(styleName),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		mdRenderer = r
		mdWidth = width
		mdLight = light
	}

	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
