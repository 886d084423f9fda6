// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file is the Update loop: keyboard dispatch, streaming flushes,
// the model-load overlay lifecycle and the reasoning timeout.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/model"
)

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ServerStatusMsg:
		m.serverUp = msg.Reachable
		if !msg.Reachable {
			m.statusNote = "server unreachable"
			return m, clearStatusNoteCmd()
		}
		return m, nil

	case ModelListMsg:
		if msg.Err == nil {
			m.pickerModels = msg.Models
			if m.pickerIndex >= len(m.pickerModels) {
				m.pickerIndex = 0
			}
		}
		return m, nil

	case ModelResolvedMsg:
		return m.handleModelResolved(msg)

	case ModelLoadStartedMsg:
		m.overlay.show(msg.ModelID, msg.StartedAt)
		m.state = StateLoading
		return m, m.spinner.Tick

	case ModelLoadResultMsg:
		return m.handleLoadResult(msg)

	case OverlayExpiredMsg:
		if m.overlay.canHide(time.Now()) {
			m.dismissOverlay()
		}
		return m, nil

	case StreamStartMsg:
		m.state = StateStreaming
		m.streamingMsgID = msg.MessageID
		m.streamStart = time.Now()
		return m, m.spinner.Tick

	case StreamTokenMsg:
		// Wake-up only; tokens accumulate in the buffer until the tick.
		return m, waitForStreamEvent(m.streamCh)

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case ChatSavedMsg:
		if msg.Err != nil {
			m.statusNote = "save failed: " + msg.Err.Error()
			return m, clearStatusNoteCmd()
		}
		return m, nil

	case SpeakDoneMsg:
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.statusNote = "speech failed"
			return m, clearStatusNoteCmd()
		}
		return m, nil

	case StatusNoteMsg:
		m.statusNote = msg.Note
		return m, clearStatusNoteCmd()

	case ClearStatusNoteMsg:
		m.statusNote = ""
		return m, nil
	}

	return m, nil
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	chromeHeight := m.chromeHeight()
	m.viewport.Width = msg.Width
	m.viewport.Height = msg.Height - chromeHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.input.Width = msg.Width - 6

	m.ready = true
	m.refreshViewport()
	return m, nil
}

// chromeHeight is the vertical space taken by everything except the
// message viewport.
func (m Model) chromeHeight() int {
	h := 1 + 3 + 1 // header + bordered input + status bar
	if m.showBanner {
		h++
	}
	return h
}

// =============================================================================
// KEYBOARD DISPATCH
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit works everywhere.
	if key.Matches(msg, m.keyMap.Quit) {
		return m.quit()
	}

	// The loading overlay blocks all other input.
	if m.overlay.visible {
		return m, nil
	}

	if m.showHelp {
		if key.Matches(msg, m.keyMap.Help) || msg.Type == tea.KeyEsc {
			m.showHelp = false
		}
		return m, nil
	}

	if m.showPicker {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		if m.streaming() {
			m.cancelMgr.cancel()
			return m, nil
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keyMap.Models):
		m.showPicker = true
		m.pickerIndex = 0
		return m, listModelsCmd(m.svc)

	case key.Matches(msg, m.keyMap.Clear):
		m.conversation.ClearHistory()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keyMap.ToggleThinking):
		m.hideThinking = !m.hideThinking
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleScroll):
		m.autoScroll = !m.autoScroll
		if m.autoScroll {
			m.viewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	// Everything else goes to the text input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showPicker = false
		return m, nil
	case "up", "k":
		if m.pickerIndex > 0 {
			m.pickerIndex--
		}
		return m, nil
	case "down", "j":
		if m.pickerIndex < len(m.pickerModels)-1 {
			m.pickerIndex++
		}
		return m, nil
	case "enter":
		if m.pickerIndex < len(m.pickerModels) {
			picked := m.pickerModels[m.pickerIndex].ID
			m.showPicker = false
			if picked != m.modelID {
				return m, loadModelCmd(m.driver, picked)
			}
		}
		return m, nil
	}
	return m, nil
}

// quit saves the conversation before exiting.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancelMgr.cancel()
	if m.conversation.IsEmpty() {
		return m, tea.Quit
	}
	m.conversation.Model = m.modelID
	return m, tea.Sequence(
		saveChatCmd(m.store, m.conversation.Clone()),
		tea.Quit,
	)
}

// newChat saves the current conversation and starts a fresh one.
func (m Model) newChat() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if !m.conversation.IsEmpty() {
		m.conversation.Model = m.modelID
		cmds = append(cmds, saveChatCmd(m.store, m.conversation.Clone()))
	}

	conv := model.NewConversation()
	conv.SystemPrompt = m.cfg.Chat.SystemPrompt
	conv.AutoTitle = m.cfg.Chat.AutoTitles
	m.conversation = conv
	m.refreshViewport()
	m.statusNote = "new chat"
	cmds = append(cmds, clearStatusNoteCmd())
	return m, tea.Batch(cmds...)
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	if m.streaming() || m.overlay.visible {
		return m, nil
	}

	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}

	m.input.Reset()
	m.conversation.Model = m.modelID
	m.conversation.AddUserMessage(content)
	assistant := m.conversation.AddAssistantMessage()
	m.streamBuf.Reset()
	m.refreshViewport()

	return m, (&m).startStreamCmd(assistant.ID)
}

// =============================================================================
// MODEL LOAD HANDLING
// =============================================================================

func (m Model) handleModelResolved(msg ModelResolvedMsg) (tea.Model, tea.Cmd) {
	if msg.Loaded {
		m.modelID = msg.ModelID
		m.conversation.Model = msg.ModelID
		return m, nil
	}
	// Nothing loaded server-side; bring up the configured default.
	if def := m.cfg.Model.DefaultID; def != "" {
		return m, loadModelCmd(m.driver, def)
	}
	return m, nil
}

func (m Model) handleLoadResult(msg ModelLoadResultMsg) (tea.Model, tea.Cmd) {
	m.overlay.finish(msg.Err)

	if msg.Err == nil {
		m.modelID = msg.ModelID
		m.conversation.Model = msg.ModelID
		m.rec.SetLastKnown(msg.ModelID)
		m.svc.Invalidate()
	}

	now := time.Now()
	if rem := m.overlay.remaining(now); rem > 0 {
		return m, overlayExpireCmd(rem)
	}
	m.dismissOverlay()
	return m, nil
}

// dismissOverlay hides the overlay and surfaces the load outcome.
func (m *Model) dismissOverlay() {
	err := m.overlay.loadErr
	modelID := m.overlay.modelID
	m.overlay.hide()
	m.state = StateReady

	if err != nil {
		m.conversation.AddErrorMessage(fmt.Sprintf("failed to load %s: %s", modelID, humanizeError(err)))
		m.refreshViewport()
		return
	}
	m.statusNote = "loaded " + modelID
}

// =============================================================================
// STREAMING HANDLING
// =============================================================================

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.streaming() {
		return m, nil
	}

	if content, ok := m.streamBuf.Flush(); ok {
		m.conversation.AppendToLast(content)
		m.refreshViewport()
	}

	if m.reasoningTimedOut(time.Now()) {
		m.cancelMgr.cancel()
		m.statusNote = "reasoning timeout, generation canceled"
		return m, tea.Batch(streamTickCmd(), clearStatusNoteCmd())
	}

	return m, streamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.conversation.AppendToLast(content)
	}
	m.conversation.FinalizeLast(msg.Stats)
	m.cancelMgr.cancel()
	m.state = StateReady
	m.streamingMsgID = ""

	var cmds []tea.Cmd

	if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
		m.conversation.AddErrorMessage(humanizeError(msg.Err))
	} else if errors.Is(msg.Err, context.Canceled) {
		m.statusNote = "generation canceled"
		cmds = append(cmds, clearStatusNoteCmd())
	}

	m.refreshViewport()

	// Persist after every exchange so a crash loses at most one turn.
	m.conversation.Model = m.modelID
	cmds = append(cmds, saveChatCmd(m.store, m.conversation.Clone()))

	if msg.Err == nil && m.cfg.TTS.Enabled {
		if last := m.conversation.GetLastAssistantMessage(); last != nil {
			if text := model.StripThinking(last.RawContent()); text != "" {
				cmds = append(cmds, speakCmd(m.speech, text))
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// reasoningTimedOut reports whether the in-flight response has produced
// only thinking content for longer than the configured timeout.
func (m *Model) reasoningTimedOut(now time.Time) bool {
	secs := m.cfg.Chat.ReasoningTimeoutSecs
	if secs <= 0 || !m.streaming() {
		return false
	}
	last := m.conversation.GetLastMessage()
	if last == nil || !last.IsStreaming || !last.ThinkingInProgress() {
		return false
	}
	return now.Sub(m.streamStart) >= time.Duration(secs)*time.Second
}

// =============================================================================
// HELPERS
// =============================================================================

// humanizeError maps client errors to short user-facing text.
func humanizeError(err error) string {
	switch {
	case lmstudio.IsUnreachable(err):
		return "cannot reach the server; is it running?"
	case lmstudio.IsTimeout(err):
		return "the server took too long to respond"
	case lmstudio.IsModelNotFound(err):
		return "the requested model is not available on the server"
	default:
		return err.Error()
	}
}

// refreshViewport re-renders the message transcript.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
	if m.autoScroll {
		m.viewport.GotoBottom()
	}
}
