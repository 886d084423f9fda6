// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import "strings"

// =============================================================================
// MODEL TYPES
// =============================================================================

// Model is one entry from GET /v1/models. Servers populate the readiness
// fields inconsistently; ID is the only field the client relies on.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`

	// Optional readiness signals, server-version dependent.
	Ready  *bool  `json:"ready,omitempty"`
	Loaded *bool  `json:"loaded,omitempty"`
	Active *bool  `json:"active,omitempty"`
	Status string `json:"status,omitempty"`
	State  string `json:"state,omitempty"`
}

// IsReady reports whether any readiness-like signal on the entry is truthy.
func (m *Model) IsReady() bool {
	if m.Ready != nil && *m.Ready {
		return true
	}
	if m.Loaded != nil && *m.Loaded {
		return true
	}
	if m.Active != nil && *m.Active {
		return true
	}
	switch strings.ToLower(m.Status) {
	case "loaded", "ready", "active":
		return true
	}
	switch strings.ToLower(m.State) {
	case "loaded", "ready", "active":
		return true
	}
	return false
}

// modelsResponse is the /v1/models list wrapper.
type modelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// modelInfoResponse covers the field names different server versions use
// on the model info extension endpoints. The first populated field wins.
type modelInfoResponse struct {
	Model       string `json:"model"`
	ModelKey    string `json:"modelKey"`
	Identifier  string `json:"identifier"`
	ID          string `json:"id"`
	LoadedModel string `json:"loaded_model"`
}

// loadedID returns the loaded-model id the response reports, if any.
func (r *modelInfoResponse) loadedID() string {
	for _, id := range []string{r.Model, r.ModelKey, r.Identifier, r.ID, r.LoadedModel} {
		if id != "" {
			return id
		}
	}
	return ""
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatMessage is a single message in a chat completion request or response.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest is the POST /v1/chat/completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatResponse is the non-streaming chat completion response.
type ChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// apiErrorResponse is the OpenAI-style error body.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
