// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// THINKING TAG TESTS
// =============================================================================

func TestSplitThinking(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantThinking string
		wantAnswer   string
		wantOpen     bool
	}{
		{
			name:       "no tags",
			raw:        "just an answer",
			wantAnswer: "just an answer",
		},
		{
			name:         "closed block",
			raw:          "<think>pondering</think>the answer",
			wantThinking: "pondering",
			wantAnswer:   "the answer",
		},
		{
			name:         "leading whitespace before tag",
			raw:          "\n  <think>hm</think>ok",
			wantThinking: "hm",
			wantAnswer:   "ok",
		},
		{
			name:         "unclosed block mid stream",
			raw:          "<think>still going",
			wantThinking: "still going",
			wantOpen:     true,
		},
		{
			name:       "empty input",
			raw:        "",
			wantAnswer: "",
		},
		{
			name:         "newlines inside block",
			raw:          "<think>line one\nline two</think>\n\nanswer",
			wantThinking: "line one\nline two",
			wantAnswer:   "answer",
		},
		{
			name:       "tag not at start is answer text",
			raw:        "prefix <think>x</think>",
			wantAnswer: "prefix <think>x</think>",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			thinking, answer, open := SplitThinking(tc.raw)
			if thinking != tc.wantThinking {
				t.Errorf("thinking = %q, want %q", thinking, tc.wantThinking)
			}
			if answer != tc.wantAnswer {
				t.Errorf("answer = %q, want %q", answer, tc.wantAnswer)
			}
			if open != tc.wantOpen {
				t.Errorf("open = %v, want %v", open, tc.wantOpen)
			}
		})
	}
}

func TestStripThinking(t *testing.T) {
	if got := StripThinking("<think>x</think>answer"); got != "answer" {
		t.Errorf("StripThinking() = %q", got)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestStreamingMessageLifecycle(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("new assistant message not streaming")
	}

	msg.AppendToken("<think>")
	msg.AppendToken("reasoning here")
	if !msg.ThinkingInProgress() {
		t.Error("ThinkingInProgress() = false inside open block")
	}

	msg.AppendToken("</think>")
	msg.AppendToken("Hello")
	msg.AppendToken(" world")
	if msg.ThinkingInProgress() {
		t.Error("ThinkingInProgress() = true after close tag")
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(6)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("still streaming after finalize")
	}
	if msg.Thinking != "reasoning here" {
		t.Errorf("Thinking = %q", msg.Thinking)
	}
	if msg.Content != "Hello world" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.TokenCount != 6 {
		t.Errorf("TokenCount = %d", msg.TokenCount)
	}
}

func TestDisplayContentHideThinking(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("<think>secret</think>visible")
	msg.FinalizeStream(nil)

	if got := msg.DisplayContent(true); got != "visible" {
		t.Errorf("DisplayContent(hide) = %q", got)
	}
	shown := msg.DisplayContent(false)
	if !strings.Contains(shown, "> secret") || !strings.Contains(shown, "visible") {
		t.Errorf("DisplayContent(show) = %q", shown)
	}
}

func TestDisplayContentWhileStreamingUnclosed(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("<think>partial thought")

	if got := msg.DisplayContent(true); got != "" {
		t.Errorf("DisplayContent(hide) mid-think = %q, want empty", got)
	}
	if got := msg.DisplayContent(false); !strings.Contains(got, "partial thought") {
		t.Errorf("DisplayContent(show) = %q", got)
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("a", 100))
	got := msg.Preview(10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("Preview() = %q", got)
	}

	short := NewUserMessage("hi")
	if short.Preview(10) != "hi" {
		t.Errorf("Preview() = %q", short.Preview(10))
	}
}

func TestMessageIDsUnique(t *testing.T) {
	a := NewUserMessage("x")
	b := NewUserMessage("x")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids not unique: %q %q", a.ID, b.ID)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationAutoTitle(t *testing.T) {
	conv := NewConversation()
	if conv.GetTitle() != "New Conversation" {
		t.Errorf("GetTitle() = %q", conv.GetTitle())
	}

	conv.AddUserMessage("How do I sort a slice in Go?")
	if conv.Title != "How do I sort a slice in Go?" {
		t.Errorf("auto title = %q", conv.Title)
	}

	conv.SetTitle("Sorting")
	conv.ClearHistory()
	if conv.Title != "Sorting" {
		t.Error("manual title lost on clear")
	}

	conv.AddUserMessage("something else")
	if conv.Title != "Sorting" {
		t.Error("manual title overwritten by auto title")
	}
}

func TestConversationAutoTitleTruncated(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage(strings.Repeat("x", 200))
	if got := len([]rune(conv.Title)); got != TitlePreviewLen {
		t.Errorf("title length = %d, want %d", got, TitlePreviewLen)
	}
}

func TestToChatMessagesSkipsErrorsAndThinking(t *testing.T) {
	conv := NewConversation()
	conv.SystemPrompt = "be helpful"
	conv.AddUserMessage("hi")
	conv.AddErrorMessage("server unreachable")

	asst := conv.AddAssistantMessage()
	asst.AppendToken("<think>hmm</think>hello")
	conv.FinalizeLast(nil)

	msgs := conv.ToChatMessages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3 (system, user, assistant)", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "be helpful" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != "hi" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
	if msgs[2].Role != "assistant" || msgs[2].Content != "hello" {
		t.Errorf("msgs[2] = %+v", msgs[2])
	}
}

func TestToChatMessagesSkipsInFlightStream(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("partial")

	msgs := conv.ToChatMessages()
	if len(msgs) != 1 {
		t.Fatalf("len = %d, want 1", len(msgs))
	}
}

func TestConversationStreamHelpers(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("question")
	conv.AddAssistantMessage()

	conv.AppendToLast("ans")
	conv.AppendToLast("wer")
	conv.FinalizeLast(nil)

	last := conv.GetLastAssistantMessage()
	if last == nil || last.Content != "answer" {
		t.Fatalf("last assistant = %+v", last)
	}
	if conv.TokensUsed == 0 {
		t.Error("token estimate not updated")
	}
}

func TestRemoveMessage(t *testing.T) {
	conv := NewConversation()
	msg := conv.AddUserMessage("bye")
	if !conv.RemoveMessage(msg.ID) {
		t.Fatal("RemoveMessage returned false")
	}
	if !conv.IsEmpty() {
		t.Error("conversation not empty after removal")
	}
	if conv.RemoveMessage("nope") {
		t.Error("RemoveMessage(unknown) = true")
	}
}

func TestPruneKeepsSystemMessages(t *testing.T) {
	conv := NewConversation()
	sys := NewSystemMessage("rules")
	conv.AddMessage(sys)

	for i := 0; i < MaxMessages+10; i++ {
		conv.AddMessage(NewUserMessage("m"))
	}

	if got := conv.MessageCount(); got != MaxMessages+1 {
		t.Errorf("count = %d, want %d", got, MaxMessages+1)
	}
	if conv.Messages[0].ID != sys.ID {
		t.Error("system message not preserved at front")
	}
}

func TestConversationClone(t *testing.T) {
	conv := NewConversationWithModel("llama-3.2-3b")
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"

	if conv.Messages[0].Content != "original" {
		t.Error("clone shares message memory with original")
	}
	if clone.Model != "llama-3.2-3b" {
		t.Errorf("clone.Model = %q", clone.Model)
	}
}

func TestStatistics(t *testing.T) {
	stats := NewStatistics()
	time.Sleep(5 * time.Millisecond)
	stats.RecordFirstToken()
	first := stats.TTFT
	stats.RecordFirstToken()
	if stats.TTFT != first {
		t.Error("RecordFirstToken overwrote TTFT")
	}

	stats.Finalize(100)
	if stats.TotalDuration <= 0 || stats.TokensPerSecond <= 0 {
		t.Errorf("stats = %+v", stats)
	}
	if out := stats.Format(); !strings.Contains(out, "100 tokens") {
		t.Errorf("Format() = %q", out)
	}
}
