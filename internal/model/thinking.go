// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// SplitThinking splits a reasoning block off the front of raw content.
// Reasoning models emit their chain of thought wrapped in <think> tags
// before the answer. The returned open flag is true when the opening tag
// has been seen but the closing tag has not yet arrived, which happens
// constantly mid-stream.
func SplitThinking(raw string) (thinking, answer string, open bool) {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	if !strings.HasPrefix(trimmed, thinkOpen) {
		return "", raw, false
	}

	rest := trimmed[len(thinkOpen):]
	end := strings.Index(rest, thinkClose)
	if end < 0 {
		return strings.TrimSpace(rest), "", true
	}

	thinking = strings.TrimSpace(rest[:end])
	answer = strings.TrimLeft(rest[end+len(thinkClose):], " \t\r\n")
	return thinking, answer, false
}

// StripThinking removes a leading reasoning block, returning only the
// answer text.
func StripThinking(raw string) string {
	_, answer, _ := SplitThinking(raw)
	return answer
}

// formatThinkingBlock renders reasoning as a quoted block above the
// answer so it reads distinctly from the reply itself.
func formatThinkingBlock(thinking, answer string) string {
	if thinking == "" {
		return answer
	}

	var sb strings.Builder
	for _, line := range strings.Split(thinking, "\n") {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if answer != "" {
		sb.WriteString("\n")
		sb.WriteString(answer)
	}
	return sb.String()
}
