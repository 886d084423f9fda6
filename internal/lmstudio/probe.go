// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"context"
	"encoding/json"
	"net/http"
)

// infoEndpoints are the model-info extension paths, newest first. Not all
// server versions expose either of them.
var infoEndpoints = []string{
	"/v1/internal/model/info",
	"/v1/model/info",
}

// ModelInfo queries the model-info extension endpoints and returns the
// loaded-model id the server reports. Each endpoint attempt is bounded by
// ProbeTimeout. Returns ErrModelNotFound if no endpoint yields an id.
func (c *Client) ModelInfo(ctx context.Context) (string, error) {
	for _, path := range infoEndpoints {
		id, err := c.queryInfoEndpoint(ctx, path)
		if err != nil {
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	return "", ErrModelNotFound
}

func (c *Client) queryInfoEndpoint(ctx context.Context, path string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ErrServerUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "info endpoint returned " + resp.Status,
		}
	}

	body, err := readResponse(resp.Body)
	if err != nil {
		return "", err
	}

	var info modelInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode info response", Cause: err}
	}

	return info.loadedID(), nil
}

// CompletionProbe issues a minimal completion (max_tokens: 1) solely to
// read back the model field of the response, which LM-Studio-like servers
// fill with the id of whatever model actually served the request. Bounded
// by ProbeTimeout.
func (c *Client) CompletionProbe(ctx context.Context, modelID string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.Chat(probeCtx, &ChatRequest{
		Model:     modelID,
		Messages:  []ChatMessage{NewUserMessage("hi")},
		MaxTokens: 1,
	})
	if err != nil {
		return "", err
	}

	if resp.Model == "" {
		return "", ErrInvalidResponse
	}
	return resp.Model, nil
}
