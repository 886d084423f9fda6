// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/util"
)

// =============================================================================
// CHAT EXPORT
// =============================================================================

// ExportMarkdown renders a chat as Markdown with metadata, timestamps,
// and role labels. Reasoning blocks are included as quoted text.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	if conv.Model != "" {
		sb.WriteString("Model: " + conv.Model + "\n\n")
	}
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.DisplayContent(false))
		for _, f := range msg.Files {
			sb.WriteString("\n\n[attachment: " + f.Name + "]")
		}
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON renders a chat as pretty-printed JSON.
func ExportJSON(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}

// =============================================================================
// CHAT LIST FORMATTING
// =============================================================================

// FormatChatList formats chat metadata as a plain-text table for the CLI.
func FormatChatList(metas []model.ConversationMeta) string {
	if len(metas) == 0 {
		return "No chats found."
	}

	var sb strings.Builder
	sb.WriteString("Chats:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(pad("ID", 12) + " " + pad("Updated", 18) + " " + pad("Msgs", 5) + " Title\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, m := range metas {
		id := m.ID
		if len(id) > 12 {
			id = id[:12]
		}
		sb.WriteString(pad(id, 12) + " " +
			pad(m.UpdatedAt.Format("2006-01-02 15:04"), 18) + " " +
			pad(strconv.Itoa(m.MessageCount), 5) + " " +
			util.TruncateRunes(m.Title, 40) + "\n")
	}
	return sb.String()
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(runes))
}
