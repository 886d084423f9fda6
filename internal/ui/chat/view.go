// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/ui/components"
	"github.com/jeranaias/lmterm/internal/ui/styles"
	"github.com/jeranaias/lmterm/internal/util"
)

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting lmterm..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	if m.showBanner {
		sections = append(sections, m.renderModelBanner())
	}
	sections = append(sections, m.renderBody())
	sections = append(sections, m.renderInput())
	sections = append(sections, m.renderStatusBar())

	return strings.Join(sections, "\n")
}

// renderBody returns the viewport, or an overlay centered in its place.
func (m Model) renderBody() string {
	switch {
	case m.overlay.visible:
		return m.centerInViewport(m.renderLoadingOverlay())
	case m.showPicker:
		return m.centerInViewport(m.renderPicker())
	case m.showHelp:
		return m.centerInViewport(m.renderHelp())
	default:
		if m.conversation.IsEmpty() {
			return m.centerInViewport(m.renderEmptyState())
		}
		return m.viewport.View()
	}
}

func (m Model) centerInViewport(content string) string {
	return lipgloss.Place(
		m.viewport.Width, m.viewport.Height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

// =============================================================================
// HEADER / STATUS
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("lmterm")
	return m.theme.Header.Render(title)
}

func (m Model) renderModelBanner() string {
	name := m.modelID
	if name == "" {
		name = "no model loaded"
	}
	banner := "model: " + m.theme.ModelName.Render(util.TruncateRunes(name, m.width-10))
	return m.theme.ModelBanner.Render(banner)
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.serverUp {
		parts = append(parts, m.theme.StatusGood.Render("online"))
	} else {
		parts = append(parts, m.theme.StatusBad.Render("offline"))
	}

	if m.streaming() {
		parts = append(parts, m.theme.StatusWarn.Render(m.spinner.View()+" streaming"))
	}

	if pct := m.conversation.GetContextPercent(); pct >= 1 {
		style := m.theme.StatusValue
		if m.conversation.IsContextNearLimit() {
			style = m.theme.StatusWarn
		}
		parts = append(parts, style.Render(fmt.Sprintf("ctx %.0f%%", pct)))
	}

	if !m.autoScroll {
		parts = append(parts, m.theme.StatusKey.Render("scroll:manual"))
	}
	if m.hideThinking {
		parts = append(parts, m.theme.StatusKey.Render("thinking:hidden"))
	}

	if m.statusNote != "" {
		parts = append(parts, m.theme.StatusWarn.Render(m.statusNote))
	} else if m.theme.GetLayoutMode() != styles.LayoutNarrow {
		parts = append(parts, m.theme.StatusKey.Render("C-o models | C-h help | C-c quit"))
	}

	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	if m.streaming() {
		hint := m.theme.Muted.Render("streaming... press Esc to cancel")
		return m.theme.InputBox.Render(hint)
	}
	return m.theme.InputBox.Render(m.input.View())
}

// =============================================================================
// MESSAGE TRANSCRIPT
// =============================================================================

// renderMessages renders the full conversation transcript for the
// viewport.
func (m *Model) renderMessages() string {
	history := m.conversation.GetHistory()
	if len(history) == 0 {
		return ""
	}

	var blocks []string
	for _, msg := range history {
		if msg.Role == model.RoleSystem {
			continue
		}
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.renderUserMessage(msg)
	case model.RoleError:
		return m.renderErrorMessage(msg)
	default:
		return m.renderAssistantMessage(msg)
	}
}

func (m *Model) renderUserMessage(msg *model.Message) string {
	label := m.theme.UserLabel.Render("You") + " " +
		m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	body := m.theme.UserBubble.Width(m.bubbleWidth()).Render(msg.Content)
	return label + "\n" + body
}

func (m *Model) renderErrorMessage(msg *model.Message) string {
	label := m.theme.ErrorLabel.Render("Error")
	body := m.theme.ErrorBubble.Width(m.bubbleWidth()).Render(msg.Content)
	return label + "\n" + body
}

func (m *Model) renderAssistantMessage(msg *model.Message) string {
	label := m.theme.AssistantLabel.Render("Assistant") + " " +
		m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	content := msg.DisplayContent(m.hideThinking)

	var body string
	if msg.IsStreaming {
		if content == "" {
			body = m.theme.Muted.Render(m.spinner.View() + " waiting for response...")
		} else {
			// Plain text while streaming; markdown waits for the final frame.
			body = content + m.theme.Muted.Render(" |")
		}
	} else {
		body = m.renderAnswer(content)
	}

	block := label + "\n" + m.theme.AssistantBubble.Width(m.bubbleWidth()).Render(body)

	if !msg.IsStreaming && msg.TokenCount > 0 {
		block += "\n" + m.theme.Stats.Render(msg.FormatStats())
	}
	return block
}

// renderAnswer renders a finalized answer. Glamour handles markdown on
// medium and wide layouts; narrow terminals skip its margins and get
// chroma-highlighted code blocks over plain text instead.
func (m *Model) renderAnswer(content string) string {
	width := m.bubbleWidth() - 2
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return components.ParseCodeBlocks(content, width, m.theme.LightTheme)
	}
	return renderMarkdown(content, width, m.theme.LightTheme)
}

func (m *Model) bubbleWidth() int {
	w := m.viewport.Width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderLoadingOverlay() string {
	title := m.theme.OverlayTitle.Render("Loading model")
	name := util.TruncateRunes(m.overlay.modelID, 40)
	detail := m.theme.OverlayDetail.Render(name)
	spin := m.theme.Spinner.Render(m.spinner.View())
	hint := m.theme.Muted.Render("large models can take a minute")

	content := lipgloss.JoinVertical(lipgloss.Center,
		spin+" "+title,
		detail,
		"",
		hint,
	)
	return m.theme.OverlayBox.Render(content)
}

func (m Model) renderPicker() string {
	title := m.theme.PickerTitle.Render("Models")

	var rows []string
	if len(m.pickerModels) == 0 {
		rows = append(rows, m.theme.Muted.Render("no models available"))
	}
	for i, mdl := range m.pickerModels {
		name := util.TruncateRunes(mdl.ID, 50)
		marker := "  "
		if mdl.ID == m.modelID {
			marker = m.theme.PickerLoaded.Render("* ")
		}
		if i == m.pickerIndex {
			rows = append(rows, marker+m.theme.PickerSelected.Render(name))
		} else {
			rows = append(rows, marker+m.theme.PickerItem.Render(name))
		}
	}

	hint := m.theme.Muted.Render("enter: load  esc: close")
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title, ""}, append(rows, "", hint)...)...)
	return m.theme.PickerBox.Render(content)
}

func (m Model) renderHelp() string {
	title := m.theme.PickerTitle.Render("Keyboard shortcuts")

	var rows []string
	for _, item := range GetHelpItems() {
		k := m.theme.HelpKey.Width(12).Render(item.Key)
		rows = append(rows, k+m.theme.HelpDesc.Render(item.Desc))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title, ""}, rows...)...)
	return m.theme.HelpBox.Render(content)
}

func (m Model) renderEmptyState() string {
	title := m.theme.HeaderTitle.Render("lmterm")
	sub := m.theme.Muted.Render("Type a message and press Enter.")
	hint := m.theme.Muted.Render("C-o picks a model, C-h shows all shortcuts.")
	return lipgloss.JoinVertical(lipgloss.Center, title, "", sub, hint)
}
