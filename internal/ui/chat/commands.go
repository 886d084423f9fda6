// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file holds the tea.Cmd constructors that talk to the inference
// server, the model driver and storage. Commands do blocking work off
// the Update loop and report back through the typed messages in
// messages.go.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lmterm/internal/api"
	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/storage"
	"github.com/jeranaias/lmterm/internal/tts"
)

// probeTimeout bounds server probes so a dead host fails fast.
const probeTimeout = 5 * time.Second

// statusNoteDuration is how long a transient status note stays visible.
const statusNoteDuration = 3 * time.Second

// =============================================================================
// SERVER / MODEL COMMANDS
// =============================================================================

// checkServerCmd probes the server health endpoint.
func checkServerCmd(svc *api.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		if err := svc.CheckRunning(ctx); err != nil {
			return ServerStatusMsg{Reachable: false, Err: err}
		}
		return ServerStatusMsg{Reachable: true}
	}
}

// listModelsCmd fetches the available models for the picker.
func listModelsCmd(svc *api.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		models, err := svc.ListModels(ctx)
		return ModelListMsg{Models: models, Err: err}
	}
}

// resolveModelCmd asks the reconciler which model is actually loaded.
func resolveModelCmd(rec *modelmgr.Reconciler) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		res := rec.Reconcile(ctx)
		return ModelResolvedMsg{ModelID: res.ModelID, Loaded: res.Loaded()}
	}
}

// loadModelCmd starts a model load through the driver. The started
// message fires immediately so the overlay appears before the blocking
// load finishes.
func loadModelCmd(driver *modelmgr.Driver, modelID string) tea.Cmd {
	startedAt := time.Now()
	return tea.Batch(
		func() tea.Msg {
			return ModelLoadStartedMsg{ModelID: modelID, StartedAt: startedAt}
		},
		func() tea.Msg {
			err := driver.Load(context.Background(), modelID)
			return ModelLoadResultMsg{ModelID: modelID, Err: err}
		},
	)
}

// overlayExpireCmd fires once the overlay minimum visibility elapses.
func overlayExpireCmd(remaining time.Duration) tea.Cmd {
	return tea.Tick(remaining, func(time.Time) tea.Msg {
		return OverlayExpiredMsg{}
	})
}

// =============================================================================
// STREAMING COMMANDS
// =============================================================================

// startStreamCmd begins streaming a completion for the current
// conversation into the assistant message identified by assistantID.
// Tokens land in the shared StreamingBuffer; the channel messages are
// wake-ups for the Update loop.
func (m *Model) startStreamCmd(assistantID string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.arm(cancel)

	temp := m.cfg.Chat.Temperature
	req := &lmstudio.ChatRequest{
		Model:       m.modelID,
		Messages:    m.conversation.ToChatMessages(),
		Temperature: &temp,
		Stream:      true,
	}

	ch := make(chan tea.Msg, 64)
	m.streamCh = ch
	buf := m.streamBuf
	svc := m.svc

	go func() {
		defer close(ch)

		stats := model.NewStatistics()
		tokens := 0
		err := svc.ChatStream(ctx, req, func(chunk lmstudio.StreamChunk) {
			content := chunk.GetContent()
			if content == "" {
				return
			}
			if tokens == 0 {
				stats.RecordFirstToken()
			}
			tokens++
			buf.Write(content)
			select {
			case ch <- StreamTokenMsg{MessageID: assistantID, Token: content}:
			default:
				// Update loop is behind; the buffer already holds the token.
			}
		})
		stats.Finalize(tokens)
		ch <- StreamCompleteMsg{MessageID: assistantID, Stats: stats, Err: err}
	}()

	return tea.Batch(
		func() tea.Msg { return StreamStartMsg{MessageID: assistantID} },
		waitForStreamEvent(ch),
		streamTickCmd(),
	)
}

// waitForStreamEvent blocks for the next event on the stream channel.
// Returns nil when the channel closes, which ends the listen loop.
func waitForStreamEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// =============================================================================
// STORAGE / SPEECH COMMANDS
// =============================================================================

// saveChatCmd persists a snapshot of the conversation. The caller must
// pass a Clone so the streaming goroutine cannot race the write.
func saveChatCmd(store *storage.ChatStore, conv *model.Conversation) tea.Cmd {
	return func() tea.Msg {
		path, err := store.Save(conv)
		return ChatSavedMsg{Path: path, Err: err}
	}
}

// speakCmd reads the given text aloud through the configured engine.
func speakCmd(engine tts.Engine, text string) tea.Cmd {
	return func() tea.Msg {
		err := engine.Speak(context.Background(), text)
		return SpeakDoneMsg{Err: err}
	}
}

// clearStatusNoteCmd removes the transient status note after a delay.
func clearStatusNoteCmd() tea.Cmd {
	return tea.Tick(statusNoteDuration, func(time.Time) tea.Msg {
		return ClearStatusNoteMsg{}
	})
}
