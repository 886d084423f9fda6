// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseBody(chunks ...string) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString("data: " + c + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sseBody(
			`{"model":"m1","choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
			`{"model":"m1","choices":[{"delta":{"content":"lo"}}]}`,
			`{"model":"m1","choices":[{"delta":{"content":""},"finish_reason":"stop"}]}`,
		)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	acc := NewStreamAccumulator()

	err := client.ChatStream(context.Background(), &ChatRequest{
		Model:    "m1",
		Messages: []ChatMessage{NewUserMessage("hi")},
	}, acc.Add)
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	if got := acc.GetContent(); got != "Hello" {
		t.Errorf("accumulated = %q, want Hello", got)
	}
	if acc.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", acc.FinishReason)
	}
	if acc.Model != "m1" {
		t.Errorf("Model = %q", acc.Model)
	}
}

func TestChatStreamSkipsMalformedChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {not json}\n\n" + sseBody(
			`{"choices":[{"delta":{"content":"ok"}}]}`,
		)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var content strings.Builder
	err := client.ChatStream(context.Background(), &ChatRequest{Model: "m"}, func(chunk StreamChunk) {
		content.WriteString(chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if content.String() != "ok" {
		t.Errorf("content = %q", content.String())
	}
}

func TestChatStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(server.URL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ChatStream(ctx, &ChatRequest{Model: "m"}, func(chunk StreamChunk) {
			cancel()
		})
	}()

	err := <-errCh
	if err == nil {
		t.Fatal("ChatStream() error = nil, want cancellation error")
	}
}

func TestChatStreamChanDeliversErrorChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ch := client.ChatStreamChan(context.Background(), &ChatRequest{Model: "m"})

	var sawError bool
	for chunk := range ch {
		if chunk.Error != nil {
			sawError = true
		}
	}
	if !sawError {
		t.Error("no error chunk delivered")
	}
}

func TestSSEReader(t *testing.T) {
	input := "event: message\ndata: first\n\n: comment\ndata: second\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent() error = %v", err)
	}
	if string(data) != "first" {
		t.Errorf("data = %q, want first", data)
	}

	data, err = reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("data = %q, want second", data)
	}
}
