// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Load/unload endpoints vary between server versions; the client walks the
// known variants in order and takes the first 2xx. {id} in a path is
// substituted with the model id, and such paths get no request body.
var (
	loadEndpoints = []string{
		"/v1/internal/model/load",
		"/v1/model/load",
		"/v1/models/load",
		"/v1/models/{id}/load",
	}
	unloadEndpoints = []string{
		"/v1/internal/model/unload",
		"/v1/model/unload",
		"/v1/models/unload",
		"/v1/models/{id}/unload",
	}
)

// modelActionRequest is the body for body-carrying load/unload variants.
type modelActionRequest struct {
	Model string `json:"model"`
}

// LoadModel asks the server to load a model, trying each known endpoint
// variant until one accepts. Returns ErrLoadRejected when every variant
// fails without the server being unreachable.
func (c *Client) LoadModel(ctx context.Context, modelID string) error {
	return c.modelAction(ctx, loadEndpoints, modelID)
}

// UnloadModel asks the server to unload a model, with the same fallback
// pattern as LoadModel.
func (c *Client) UnloadModel(ctx context.Context, modelID string) error {
	return c.modelAction(ctx, unloadEndpoints, modelID)
}

func (c *Client) modelAction(ctx context.Context, endpoints []string, modelID string) error {
	unreachable := 0

	for _, path := range endpoints {
		err := c.tryEndpoint(ctx, path, modelID)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ErrTimeout
		}
		if IsUnreachable(err) {
			unreachable++
		}
	}

	if unreachable == len(endpoints) {
		return ErrServerUnreachable
	}
	return ErrLoadRejected
}

func (c *Client) tryEndpoint(ctx context.Context, path, modelID string) error {
	var body *bytes.Reader
	if strings.Contains(path, "{id}") {
		path = strings.ReplaceAll(path, "{id}", modelID)
		body = bytes.NewReader(nil)
	} else {
		data, err := json.Marshal(modelActionRequest{Model: modelID})
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrTimeout
		}
		return ErrServerUnreachable
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &ClientError{
		Type:    ErrTypeLoadRejected,
		Message: path + " returned " + resp.Status,
	}
}

// ForceLoad coerces the server into loading a model by sending a full
// completion request; LM-Studio-like servers lazily load the requested
// model as a side effect. Bounded by LoadTimeout since a cold load can
// take tens of seconds.
func (c *Client) ForceLoad(ctx context.Context, modelID string) error {
	loadCtx, cancel := context.WithTimeout(ctx, c.config.LoadTimeout)
	defer cancel()

	_, err := c.chat(loadCtx, c.streamClient, &ChatRequest{
		Model:     modelID,
		Messages:  []ChatMessage{NewUserMessage("hi")},
		MaxTokens: 1,
	})
	return err
}
