// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/lmterm/internal/api"
	"github.com/jeranaias/lmterm/internal/config"
	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/storage"
	"github.com/jeranaias/lmterm/internal/tts"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

// newTestModel builds a chat model with real wiring but no live server.
// PATH is emptied so the speech engine resolves to the no-op.
func newTestModel(t *testing.T) Model {
	t.Helper()
	t.Setenv("PATH", t.TempDir())

	cfg := config.Default()
	svc := api.NewService(lmstudio.NewClient())
	driver := modelmgr.NewDriver(svc)
	rec := modelmgr.NewReconciler(svc)
	store, err := storage.NewChatStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewChatStoreWithDir: %v", err)
	}
	engine := tts.NewEngine("")

	return New(styles.NewTheme(false), cfg, svc, driver, rec, store, engine)
}

func TestReasoningTimedOut(t *testing.T) {
	tests := []struct {
		name        string
		timeoutSecs int
		streaming   bool
		content     string
		elapsed     time.Duration
		want        bool
	}{
		{
			name:        "thinking only past the deadline",
			timeoutSecs: 1,
			streaming:   true,
			content:     "<think>still reasoning about it",
			elapsed:     2 * time.Second,
			want:        true,
		},
		{
			name:        "thinking only but within the deadline",
			timeoutSecs: 30,
			streaming:   true,
			content:     "<think>still reasoning",
			elapsed:     2 * time.Second,
			want:        false,
		},
		{
			name:        "answer content arrived",
			timeoutSecs: 1,
			streaming:   true,
			content:     "<think>done</think>the answer is 4",
			elapsed:     2 * time.Second,
			want:        false,
		},
		{
			name:        "timeout disabled",
			timeoutSecs: 0,
			streaming:   true,
			content:     "<think>forever",
			elapsed:     time.Hour,
			want:        false,
		},
		{
			name:        "not streaming",
			timeoutSecs: 1,
			streaming:   false,
			content:     "<think>leftover",
			elapsed:     2 * time.Second,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			m.cfg.Chat.ReasoningTimeoutSecs = tt.timeoutSecs

			m.conversation.AddUserMessage("question")
			m.conversation.AddAssistantMessage()
			m.conversation.AppendToLast(tt.content)

			if tt.streaming {
				m.state = StateStreaming
			}
			m.streamStart = time.Now().Add(-tt.elapsed)

			if got := m.reasoningTimedOut(time.Now()); got != tt.want {
				t.Errorf("reasoningTimedOut() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFastLoadKeepsOverlayUp(t *testing.T) {
	m := newTestModel(t)
	m.overlay.show("phi-3", time.Now())
	m.state = StateLoading

	updated, cmd := m.handleLoadResult(ModelLoadResultMsg{ModelID: "phi-3"})
	m = updated.(Model)

	if !m.overlay.visible {
		t.Error("overlay hidden before its minimum window elapsed")
	}
	if cmd == nil {
		t.Error("expected a scheduled expiry command")
	}
	// The result itself applies immediately; only dismissal waits.
	if m.modelID != "phi-3" {
		t.Errorf("modelID = %q, want phi-3", m.modelID)
	}
}

func TestSlowLoadDismissesOverlayImmediately(t *testing.T) {
	m := newTestModel(t)
	m.overlay.show("llama-70b", time.Now().Add(-10*time.Second))
	m.state = StateLoading

	updated, _ := m.handleLoadResult(ModelLoadResultMsg{ModelID: "llama-70b"})
	m = updated.(Model)

	if m.overlay.visible {
		t.Error("overlay should hide at once when the window already elapsed")
	}
	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady", m.state)
	}
}

func TestOverlayExpiryDismissesFinishedLoad(t *testing.T) {
	m := newTestModel(t)
	m.overlay.show("phi-3", time.Now().Add(-2*time.Second))
	m.overlay.finish(nil)
	m.state = StateLoading

	updated, _ := m.Update(OverlayExpiredMsg{})
	m = updated.(Model)

	if m.overlay.visible {
		t.Error("expiry should dismiss a finished load")
	}
}

func TestOverlayExpiryIgnoredWhileLoading(t *testing.T) {
	m := newTestModel(t)
	m.overlay.show("phi-3", time.Now().Add(-2*time.Second))
	m.state = StateLoading

	updated, _ := m.Update(OverlayExpiredMsg{})
	m = updated.(Model)

	if !m.overlay.visible {
		t.Error("expiry must not dismiss an unfinished load")
	}
}

func TestFailedLoadSurfacesError(t *testing.T) {
	m := newTestModel(t)
	m.overlay.show("broken", time.Now().Add(-10*time.Second))
	m.state = StateLoading

	updated, _ := m.handleLoadResult(ModelLoadResultMsg{
		ModelID: "broken",
		Err:     lmstudio.ErrModelNotFound,
	})
	m = updated.(Model)

	last := m.conversation.GetLastMessage()
	if last == nil {
		t.Fatal("no error message added")
	}
	if !strings.Contains(last.Content, "broken") {
		t.Errorf("error message %q does not name the model", last.Content)
	}
	if m.modelID == "broken" {
		t.Error("failed load must not become the active model")
	}
}

func TestSubmitIgnoresEmptyInput(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("   ")

	updated, cmd := m.submitInput()
	m = updated.(Model)

	if cmd != nil {
		t.Error("blank input should not start a stream")
	}
	if m.conversation.MessageCount() != 0 {
		t.Error("blank input should not add messages")
	}
}

func TestSubmitBlockedWhileStreaming(t *testing.T) {
	m := newTestModel(t)
	m.state = StateStreaming
	m.input.SetValue("another question")

	_, cmd := m.submitInput()
	if cmd != nil {
		t.Error("submit during streaming should be a no-op")
	}
}

func TestHumanizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unreachable", lmstudio.ErrServerUnreachable, "cannot reach"},
		{"timeout", lmstudio.ErrTimeout, "took too long"},
		{"model missing", lmstudio.ErrModelNotFound, "not available"},
		{"other", errors.New("disk on fire"), "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := humanizeError(tt.err)
			if !strings.Contains(got, tt.want) {
				t.Errorf("humanizeError(%v) = %q, want containing %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestStreamCompleteResetsState(t *testing.T) {
	m := newTestModel(t)
	m.conversation.AddUserMessage("hi")
	assistant := m.conversation.AddAssistantMessage()
	m.state = StateStreaming
	m.streamingMsgID = assistant.ID
	m.streamBuf.Write("hello there")

	updated, cmd := m.handleStreamComplete(StreamCompleteMsg{
		MessageID: assistant.ID,
	})
	m = updated.(Model)

	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady", m.state)
	}
	if cmd == nil {
		t.Error("completion should schedule a save")
	}
	last := m.conversation.GetLastAssistantMessage()
	if last == nil || last.IsStreaming {
		t.Error("assistant message not finalized")
	}
	if last.Content != "hello there" {
		t.Errorf("content = %q, want buffered tail flushed", last.Content)
	}
}
