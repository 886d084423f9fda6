// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the LM Studio client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeInvalidResponse
	ErrTypeLoadRejected
)

// Sentinel errors for easy checking.
var (
	ErrServerUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "server is not responding"}
	ErrTimeout           = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound     = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrInvalidResponse   = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid server response"}
	ErrLoadRejected      = &ClientError{Type: ErrTypeLoadRejected, Message: "server rejected the load request"}
)

// IsUnreachable checks if an error indicates the server is unreachable.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnreachable
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// MaxResponseSize caps how much of a response body the client will read (10MB).
const MaxResponseSize = 10 * 1024 * 1024

// ClientConfig holds configuration options for the LM Studio client.
type ClientConfig struct {
	// BaseURL of the server, e.g. http://192.168.1.20:1234 (default:
	// http://127.0.0.1:1234). The /v1 prefix is appended per request.
	BaseURL string

	// Timeout for ordinary requests (default: 30s)
	Timeout time.Duration

	// ProbeTimeout bounds each reconciliation probe so a dead extension
	// endpoint cannot stall the chain (default: 3s)
	ProbeTimeout time.Duration

	// LoadTimeout bounds the forced-load completion request; lazy model
	// loading on the server side can legitimately take this long
	// (default: 60s)
	LoadTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:1234",
		Timeout:      30 * time.Second,
		ProbeTimeout: 3 * time.Second,
		LoadTimeout:  60 * time.Second,
	}
}

// sharedTransport pools connections across client instances. Streaming
// reuses it without a client-level timeout; cancellation comes from the
// request context instead.
var sharedTransport = &http.Transport{
	MaxIdleConns:        10,
	MaxIdleConnsPerHost: 5,
	IdleConnTimeout:     90 * time.Second,
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with an LM Studio-compatible server.
// It is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling defaults for zero values.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:1234"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 3 * time.Second
	}
	if config.LoadTimeout == 0 {
		config.LoadTimeout = 60 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   config.Timeout,
		},
		streamClient: &http.Client{
			Transport: sharedTransport,
		},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that the server is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrServerUnreachable
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeUnreachable,
			Message: "unexpected status from server: " + resp.Status,
		}
	}

	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves the model list from GET /v1/models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrServerUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	body, err := readResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	var result modelsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		// Some servers return a bare array instead of the data wrapper.
		var bare []Model
		if err2 := json.Unmarshal(body, &bare); err2 == nil {
			return bare, nil
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode model list", Cause: err}
	}

	return result.Data, nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a non-streaming chat completion request.
func (c *Client) Chat(ctx context.Context, chatReq *ChatRequest) (*ChatResponse, error) {
	return c.chat(ctx, c.httpClient, chatReq)
}

func (c *Client) chat(ctx context.Context, httpClient *http.Client, chatReq *ChatRequest) (*ChatResponse, error) {
	chatReq.Stream = false

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrServerUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	respBody, err := readResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	var result ChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// errorFromResponse maps a non-200 response to a typed error, reading the
// OpenAI-style error body when present.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	message := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		if message != "" {
			return &ClientError{Type: ErrTypeModelNotFound, Message: message}
		}
		return ErrModelNotFound
	case http.StatusBadRequest:
		if message != "" && strings.Contains(strings.ToLower(message), "model") {
			return &ClientError{Type: ErrTypeModelNotFound, Message: message}
		}
	}

	if message == "" {
		message = "request failed: " + resp.Status
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: message}
}

// readResponse reads a response body with a size cap.
func readResponse(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err}
	}
	if len(body) > MaxResponseSize {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("response exceeds %d byte limit", MaxResponseSize),
		}
	}
	return body, nil
}

func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
