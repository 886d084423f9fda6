// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:      url,
		Timeout:      5 * time.Second,
		ProbeTimeout: 2 * time.Second,
		LoadTimeout:  5 * time.Second,
	})
}

func TestCheckRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q, want /v1/models", r.URL.Path)
		}
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning() error = %v", err)
	}
}

func TestCheckRunningUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	err := client.CheckRunning(context.Background())
	if !IsUnreachable(err) {
		t.Errorf("CheckRunning() error = %v, want unreachable", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"id": "llama-3.2-3b", "object": "model", "ready": true},
				{"id": "qwen2.5-7b", "object": "model", "status": "not-loaded"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("len(models) = %d, want 2", len(models))
	}
	if models[0].ID != "llama-3.2-3b" {
		t.Errorf("models[0].ID = %q", models[0].ID)
	}
	if !models[0].IsReady() {
		t.Error("models[0].IsReady() = false, want true")
	}
	if models[1].IsReady() {
		t.Error("models[1].IsReady() = true, want false")
	}
}

func TestListModelsBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "m1"}, {"id": "m2"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].ID != "m1" {
		t.Errorf("models = %+v", models)
	}
}

func TestModelIsReady(t *testing.T) {
	truthy := true
	falsy := false

	tests := []struct {
		name  string
		model Model
		want  bool
	}{
		{"no flags", Model{ID: "m"}, false},
		{"ready true", Model{ID: "m", Ready: &truthy}, true},
		{"ready false", Model{ID: "m", Ready: &falsy}, false},
		{"loaded true", Model{ID: "m", Loaded: &truthy}, true},
		{"active true", Model{ID: "m", Active: &truthy}, true},
		{"status loaded", Model{ID: "m", Status: "loaded"}, true},
		{"status LOADED mixed case", Model{ID: "m", Status: "Loaded"}, true},
		{"state ready", Model{ID: "m", State: "ready"}, true},
		{"status unrelated", Model{ID: "m", Status: "downloading"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.model.IsReady(); got != tc.want {
				t.Errorf("IsReady() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "llama-3.2-3b" {
			t.Errorf("request model = %q", req.Model)
		}
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama-3.2-3b",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Chat(context.Background(), &ChatRequest{
		Model:    "llama-3.2-3b",
		Messages: []ChatMessage{NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.GetContent() != "hello" {
		t.Errorf("GetContent() = %q, want hello", resp.GetContent())
	}
	if resp.Model != "llama-3.2-3b" {
		t.Errorf("Model = %q", resp.Model)
	}
}

func TestChatModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"message": "model does not exist"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), &ChatRequest{Model: "nope"})
	if !IsModelNotFound(err) {
		t.Errorf("Chat() error = %v, want model not found", err)
	}
}

func TestModelInfoFirstEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/internal/model/info" {
			w.Write([]byte(`{"modelKey": "llama-3.2-3b"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.ModelInfo(context.Background())
	if err != nil {
		t.Fatalf("ModelInfo() error = %v", err)
	}
	if id != "llama-3.2-3b" {
		t.Errorf("ModelInfo() = %q", id)
	}
}

func TestModelInfoFallsBackToSecondEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/internal/model/info":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/model/info":
			w.Write([]byte(`{"model": "qwen2.5-7b"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.ModelInfo(context.Background())
	if err != nil {
		t.Fatalf("ModelInfo() error = %v", err)
	}
	if id != "qwen2.5-7b" {
		t.Errorf("ModelInfo() = %q", id)
	}
}

func TestModelInfoAllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ModelInfo(context.Background())
	if err == nil {
		t.Fatal("ModelInfo() error = nil, want error")
	}
}

func TestCompletionProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != 1 {
			t.Errorf("max_tokens = %d, want 1", req.MaxTokens)
		}
		w.Write([]byte(`{"model": "actually-loaded-model", "choices": [{"message": {"role": "assistant", "content": "x"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.CompletionProbe(context.Background(), "requested-model")
	if err != nil {
		t.Fatalf("CompletionProbe() error = %v", err)
	}
	if id != "actually-loaded-model" {
		t.Errorf("CompletionProbe() = %q", id)
	}
}

func TestLoadModelFirstVariantWins(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.LoadModel(context.Background(), "m1"); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if len(paths) != 1 || paths[0] != "/v1/internal/model/load" {
		t.Errorf("paths = %v, want only /v1/internal/model/load", paths)
	}
}

func TestLoadModelFallsThroughVariants(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v1/models/m1/load" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.LoadModel(context.Background(), "m1"); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	want := []string{"/v1/internal/model/load", "/v1/model/load", "/v1/models/load", "/v1/models/m1/load"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestLoadModelAllVariantsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.LoadModel(context.Background(), "m1")
	if !errors.Is(err, ErrLoadRejected) {
		t.Errorf("LoadModel() error = %v, want ErrLoadRejected", err)
	}
}

func TestUnloadModelUsesUnloadPaths(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.UnloadModel(context.Background(), "m1"); err != nil {
		t.Fatalf("UnloadModel() error = %v", err)
	}
	if gotPath != "/v1/internal/model/unload" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestForceLoadSendsFullCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "m1" {
			t.Errorf("model = %q", req.Model)
		}
		w.Write([]byte(`{"model": "m1", "choices": [{"message": {"role": "assistant", "content": "x"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.ForceLoad(context.Background(), "m1"); err != nil {
		t.Errorf("ForceLoad() error = %v", err)
	}
}
